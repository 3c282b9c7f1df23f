package crypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rc4"
	"testing"

	"github.com/georgepadayatti/pdfcos/pdf/generic"
)

var testFileID = []byte{
	0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
	0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F, 0x10,
}

func preparedHandler(t *testing.T, method Method) *StandardSecurityHandler {
	t.Helper()
	h := NewStandardSecurityHandler(method)
	if err := h.GenerateKeys([]byte("user"), []byte("owner"), testFileID); err != nil {
		t.Fatalf("GenerateKeys() error = %v", err)
	}
	return h
}

func TestPadPassword(t *testing.T) {
	tests := []struct {
		name     string
		password []byte
		want     []byte
	}{
		{"empty", nil, passwordPadding},
		{"short", []byte("test"), append([]byte("test"), passwordPadding[:28]...)},
		{"exact", bytes.Repeat([]byte("a"), 32), bytes.Repeat([]byte("a"), 32)},
		{"long", bytes.Repeat([]byte("b"), 40), bytes.Repeat([]byte("b"), 32)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := padPassword(tt.password)
			if len(got) != 32 {
				t.Fatalf("len = %d, want 32", len(got))
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("padPassword() = %x, want %x", got, tt.want)
			}
		})
	}
}

func TestGenerateKeysShape(t *testing.T) {
	h := preparedHandler(t, MethodRC4)

	if len(h.ownerKey) != 32 {
		t.Errorf("O length = %d, want 32", len(h.ownerKey))
	}
	if len(h.userKey) != 32 {
		t.Errorf("U length = %d, want 32", len(h.userKey))
	}
	if len(h.encryptionKey) != 16 {
		t.Errorf("file key length = %d, want 16", len(h.encryptionKey))
	}
}

func TestGenerateKeysDeterministic(t *testing.T) {
	a := preparedHandler(t, MethodRC4)
	b := preparedHandler(t, MethodRC4)

	if !bytes.Equal(a.ownerKey, b.ownerKey) || !bytes.Equal(a.userKey, b.userKey) {
		t.Error("same inputs produced different O/U values")
	}

	c := NewStandardSecurityHandler(MethodRC4)
	if err := c.GenerateKeys([]byte("other"), []byte("owner"), testFileID); err != nil {
		t.Fatalf("GenerateKeys() error = %v", err)
	}
	if bytes.Equal(a.userKey, c.userKey) {
		t.Error("different user passwords produced the same U value")
	}
}

func TestOwnerPasswordFallback(t *testing.T) {
	a := NewStandardSecurityHandler(MethodRC4)
	if err := a.GenerateKeys([]byte("user"), nil, testFileID); err != nil {
		t.Fatalf("GenerateKeys() error = %v", err)
	}
	b := NewStandardSecurityHandler(MethodRC4)
	if err := b.GenerateKeys([]byte("user"), []byte("user"), testFileID); err != nil {
		t.Fatalf("GenerateKeys() error = %v", err)
	}
	if !bytes.Equal(a.ownerKey, b.ownerKey) {
		t.Error("empty owner password did not fall back to the user password")
	}
}

func TestEncryptRC4Roundtrip(t *testing.T) {
	h := preparedHandler(t, MethodRC4)
	key := generic.ObjectKey{Number: 7, Generation: 0}
	plaintext := []byte("stream payload bytes")

	ciphertext, err := h.EncryptStream(plaintext, key)
	if err != nil {
		t.Fatalf("EncryptStream() error = %v", err)
	}
	if bytes.Equal(ciphertext, plaintext) {
		t.Fatal("ciphertext equals plaintext")
	}

	// RC4 is symmetric under the same per-object key.
	c, err := rc4.NewCipher(h.computeObjectKey(key.Number, key.Generation))
	if err != nil {
		t.Fatalf("NewCipher() error = %v", err)
	}
	decrypted := make([]byte, len(ciphertext))
	c.XORKeyStream(decrypted, ciphertext)
	if !bytes.Equal(decrypted, plaintext) {
		t.Errorf("decrypted = %q, want %q", decrypted, plaintext)
	}
}

func TestEncryptAESRoundtrip(t *testing.T) {
	h := preparedHandler(t, MethodAESV2)
	key := generic.ObjectKey{Number: 3, Generation: 0}
	plaintext := []byte("string payload")

	ciphertext, err := h.EncryptString(plaintext, key)
	if err != nil {
		t.Fatalf("EncryptString() error = %v", err)
	}
	if len(ciphertext)%16 != 0 || len(ciphertext) < 32 {
		t.Fatalf("ciphertext length = %d, want IV plus padded blocks", len(ciphertext))
	}

	block, err := aes.NewCipher(h.computeObjectKey(key.Number, key.Generation))
	if err != nil {
		t.Fatalf("NewCipher() error = %v", err)
	}
	iv, body := ciphertext[:16], ciphertext[16:]
	decrypted := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(decrypted, body)

	padLen := int(decrypted[len(decrypted)-1])
	if padLen < 1 || padLen > 16 {
		t.Fatalf("bad PKCS#7 padding byte %d", padLen)
	}
	if got := decrypted[:len(decrypted)-padLen]; !bytes.Equal(got, plaintext) {
		t.Errorf("decrypted = %q, want %q", got, plaintext)
	}
}

func TestEncryptAESRandomizedIV(t *testing.T) {
	h := preparedHandler(t, MethodAESV2)
	key := generic.ObjectKey{Number: 3, Generation: 0}

	a, err := h.EncryptString([]byte("same input"), key)
	if err != nil {
		t.Fatalf("EncryptString() error = %v", err)
	}
	b, err := h.EncryptString([]byte("same input"), key)
	if err != nil {
		t.Fatalf("EncryptString() error = %v", err)
	}
	if bytes.Equal(a, b) {
		t.Error("two encryptions of the same input are identical")
	}
}

func TestObjectKeyVariesPerObject(t *testing.T) {
	h := preparedHandler(t, MethodRC4)

	a := h.computeObjectKey(1, 0)
	b := h.computeObjectKey(2, 0)
	if bytes.Equal(a, b) {
		t.Error("different objects share a per-object key")
	}

	h.Method = MethodAESV2
	salted := h.computeObjectKey(1, 0)
	if bytes.Equal(a, salted) {
		t.Error("AES object key missing the salt")
	}
}

func TestEncryptBeforeGenerateKeys(t *testing.T) {
	h := NewStandardSecurityHandler(MethodRC4)

	if _, err := h.EncryptString([]byte("x"), generic.ObjectKey{Number: 1}); err != ErrNotPrepared {
		t.Errorf("EncryptString() error = %v, want ErrNotPrepared", err)
	}
	if _, err := h.EncryptionDictionary(); err != ErrNotPrepared {
		t.Errorf("EncryptionDictionary() error = %v, want ErrNotPrepared", err)
	}
}

func TestEncryptionDictionaryRC4(t *testing.T) {
	h := preparedHandler(t, MethodRC4)
	dict, err := h.EncryptionDictionary()
	if err != nil {
		t.Fatalf("EncryptionDictionary() error = %v", err)
	}

	if got := dict.GetName(generic.NameFilter); got == nil || got.Value() != "Standard" {
		t.Errorf("/Filter = %v, want Standard", got)
	}
	if got := dict.Get(generic.NameV); got != generic.IntegerObject(2) {
		t.Errorf("/V = %v, want 2", got)
	}
	if got := dict.Get(nameR); got != generic.IntegerObject(3) {
		t.Errorf("/R = %v, want 3", got)
	}
	if got := dict.Get(nameP); got != generic.IntegerObject(-4) {
		t.Errorf("/P = %v, want -4", got)
	}
	if s := dict.GetString(nameO); s == nil || len(s.Value) != 32 {
		t.Error("/O missing or not 32 bytes")
	}
	if s := dict.GetString(nameU); s == nil || len(s.Value) != 32 {
		t.Error("/U missing or not 32 bytes")
	}
	if dict.Has(nameCF) {
		t.Error("RC4 dictionary must not carry /CF")
	}
}

func TestEncryptionDictionaryAES(t *testing.T) {
	h := preparedHandler(t, MethodAESV2)
	dict, err := h.EncryptionDictionary()
	if err != nil {
		t.Fatalf("EncryptionDictionary() error = %v", err)
	}

	if got := dict.Get(generic.NameV); got != generic.IntegerObject(4) {
		t.Errorf("/V = %v, want 4", got)
	}
	if got := dict.Get(nameR); got != generic.IntegerObject(4) {
		t.Errorf("/R = %v, want 4", got)
	}

	cf := dict.GetDict(nameCF)
	if cf == nil {
		t.Fatal("/CF missing")
	}
	stdCF := cf.GetDict(nameStdCF)
	if stdCF == nil {
		t.Fatal("/CF/StdCF missing")
	}
	if got := stdCF.GetName(nameCFM); got == nil || got.Value() != "AESV2" {
		t.Errorf("/CFM = %v, want AESV2", got)
	}
	if got := dict.GetName(nameStmF); got == nil || got.Value() != "StdCF" {
		t.Errorf("/StmF = %v, want StdCF", got)
	}
	if got := dict.GetName(nameStrF); got == nil || got.Value() != "StdCF" {
		t.Errorf("/StrF = %v, want StdCF", got)
	}
}
