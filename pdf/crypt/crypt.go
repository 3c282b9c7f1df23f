// Package crypt implements the standard PDF security handler for the
// write side: RC4 (R3) and AES-128 (R4) encryption of strings and
// stream payloads, keyed per object.
package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"crypto/rc4"
	"errors"
	"fmt"

	"github.com/georgepadayatti/pdfcos/pdf/generic"
)

// Common errors
var (
	ErrNotPrepared        = errors.New("encryption keys have not been generated")
	ErrUnsupportedKeySize = errors.New("unsupported key length")
)

// Permissions represents PDF permissions.
type Permissions uint32

const (
	PermPrint            Permissions = 1 << 2
	PermModify           Permissions = 1 << 3
	PermCopy             Permissions = 1 << 4
	PermAnnotate         Permissions = 1 << 5
	PermFillForms        Permissions = 1 << 8
	PermAccessibility    Permissions = 1 << 9
	PermAssemble         Permissions = 1 << 10
	PermPrintHighQuality Permissions = 1 << 11

	// PermAll grants everything. The reserved bits above the defined
	// flags must be set in /P.
	PermAll Permissions = 0xFFFFFFFC
)

// Method selects the encryption algorithm.
type Method int

const (
	// MethodRC4 is RC4 with a 128-bit key (V2, R3).
	MethodRC4 Method = iota
	// MethodAESV2 is AES-128-CBC (V4, R4).
	MethodAESV2
)

// Encryption dictionary names.
var (
	nameStandard = generic.NewName("Standard")
	nameR        = generic.NewName("R")
	nameO        = generic.NewName("O")
	nameU        = generic.NewName("U")
	nameP        = generic.NewName("P")
	nameCF       = generic.NewName("CF")
	nameStmF     = generic.NewName("StmF")
	nameStrF     = generic.NewName("StrF")
	nameStdCF    = generic.NewName("StdCF")
	nameCFM      = generic.NewName("CFM")
	nameAESV2    = generic.NewName("AESV2")
)

// StandardSecurityHandler encrypts output with the standard security
// handler. GenerateKeys must run before any Encrypt call; the writer's
// /ID first element feeds the key derivation, so the handler has to see
// the same bytes the trailer will carry.
type StandardSecurityHandler struct {
	Method      Method
	Permissions Permissions

	ownerKey      []byte // O value
	userKey       []byte // U value
	encryptionKey []byte
	fileID        []byte
}

// NewStandardSecurityHandler creates a handler with full permissions.
func NewStandardSecurityHandler(method Method) *StandardSecurityHandler {
	return &StandardSecurityHandler{
		Method:      method,
		Permissions: PermAll,
	}
}

// GenerateKeys derives the O and U values and the file encryption key
// from the passwords and the first element of the document /ID. An empty
// owner password falls back to the user password.
func (h *StandardSecurityHandler) GenerateKeys(userPassword, ownerPassword, fileID []byte) error {
	if len(ownerPassword) == 0 {
		ownerPassword = userPassword
	}
	h.fileID = fileID
	h.ownerKey = computeOwnerKey(ownerPassword, userPassword)
	h.encryptionKey = h.computeEncryptionKey(userPassword)
	h.userKey = h.computeUserKey()
	return nil
}

// computeEncryptionKey derives the 128-bit file key from the padded user
// password, O, P and the file ID.
func (h *StandardSecurityHandler) computeEncryptionKey(userPassword []byte) []byte {
	hash := md5.New()
	hash.Write(padPassword(userPassword))
	hash.Write(h.ownerKey)

	p := uint32(h.Permissions)
	hash.Write([]byte{byte(p), byte(p >> 8), byte(p >> 16), byte(p >> 24)})
	hash.Write(h.fileID)

	key := hash.Sum(nil)
	for i := 0; i < 50; i++ {
		sum := md5.Sum(key[:16])
		key = sum[:]
	}
	return key[:16]
}

// computeOwnerKey derives the O value: the padded user password
// encrypted under a key taken from the owner password.
func computeOwnerKey(ownerPassword, userPassword []byte) []byte {
	sum := md5.Sum(padPassword(ownerPassword))
	key := sum[:]
	for i := 0; i < 50; i++ {
		next := md5.Sum(key[:16])
		key = next[:]
	}
	key = key[:16]

	o := padPassword(userPassword)
	for i := 0; i <= 19; i++ {
		c, _ := rc4.NewCipher(xorKey(key, byte(i)))
		c.XORKeyStream(o, o)
	}
	return o
}

// computeUserKey derives the U value from the file key and the file ID.
func (h *StandardSecurityHandler) computeUserKey() []byte {
	hash := md5.New()
	hash.Write(passwordPadding)
	hash.Write(h.fileID)
	intermediate := hash.Sum(nil)

	for i := 0; i <= 19; i++ {
		c, _ := rc4.NewCipher(xorKey(h.encryptionKey, byte(i)))
		c.XORKeyStream(intermediate, intermediate)
	}

	// Padded to 32 bytes; only the first 16 are significant.
	result := make([]byte, 32)
	copy(result, intermediate)
	return result
}

// xorKey returns key with every byte xored with b.
func xorKey(key []byte, b byte) []byte {
	out := make([]byte, len(key))
	for i := range key {
		out[i] = key[i] ^ b
	}
	return out
}

// EncryptString encrypts a string payload under the per-object key.
func (h *StandardSecurityHandler) EncryptString(data []byte, key generic.ObjectKey) ([]byte, error) {
	return h.encryptForObject(data, key)
}

// EncryptStream encrypts a stream payload under the per-object key.
func (h *StandardSecurityHandler) EncryptStream(data []byte, key generic.ObjectKey) ([]byte, error) {
	return h.encryptForObject(data, key)
}

func (h *StandardSecurityHandler) encryptForObject(data []byte, key generic.ObjectKey) ([]byte, error) {
	if h.encryptionKey == nil {
		return nil, ErrNotPrepared
	}
	objKey := h.computeObjectKey(key.Number, key.Generation)
	if h.Method == MethodAESV2 {
		return encryptAES(data, objKey)
	}
	return encryptRC4(data, objKey)
}

// computeObjectKey mixes the object number and generation into the file
// key. AES additionally salts the hash with "sAlT".
func (h *StandardSecurityHandler) computeObjectKey(objNum, genNum int) []byte {
	hash := md5.New()
	hash.Write(h.encryptionKey)
	hash.Write([]byte{byte(objNum), byte(objNum >> 8), byte(objNum >> 16)})
	hash.Write([]byte{byte(genNum), byte(genNum >> 8)})
	if h.Method == MethodAESV2 {
		hash.Write([]byte("sAlT"))
	}

	key := hash.Sum(nil)
	keyLen := len(h.encryptionKey) + 5
	if keyLen > 16 {
		keyLen = 16
	}
	return key[:keyLen]
}

// encryptRC4 encrypts with RC4; the cipher is symmetric.
func encryptRC4(data, key []byte) ([]byte, error) {
	c, err := rc4.NewCipher(key)
	if err != nil {
		return nil, err
	}
	result := make([]byte, len(data))
	c.XORKeyStream(result, data)
	return result, nil
}

// encryptAES encrypts with AES-CBC: a random IV followed by the
// PKCS#7-padded ciphertext.
func encryptAES(data, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	padLen := 16 - len(data)%16
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}

	iv := make([]byte, 16)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("failed to generate IV: %w", err)
	}

	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	return append(iv, ciphertext...), nil
}

// EncryptionDictionary builds the /Encrypt dictionary describing the
// generated keys. GenerateKeys must have run first.
func (h *StandardSecurityHandler) EncryptionDictionary() (*generic.DictionaryObject, error) {
	if h.encryptionKey == nil {
		return nil, ErrNotPrepared
	}

	dict := generic.NewDictionary()
	dict.Set(generic.NameFilter, nameStandard)
	dict.Set(nameO, generic.NewHexString(h.ownerKey))
	dict.Set(nameU, generic.NewHexString(h.userKey))
	dict.Set(nameP, generic.IntegerObject(int32(h.Permissions)))
	dict.Set(generic.NameLength, generic.IntegerObject(128))

	switch h.Method {
	case MethodAESV2:
		dict.Set(generic.NameV, generic.IntegerObject(4))
		dict.Set(nameR, generic.IntegerObject(4))

		stdCF := generic.NewDictionary()
		stdCF.Set(nameCFM, nameAESV2)
		stdCF.Set(generic.NameLength, generic.IntegerObject(16))
		cf := generic.NewDictionary()
		cf.Set(nameStdCF, stdCF)
		dict.Set(nameCF, cf)
		dict.Set(nameStmF, nameStdCF)
		dict.Set(nameStrF, nameStdCF)
	default:
		dict.Set(generic.NameV, generic.IntegerObject(2))
		dict.Set(nameR, generic.IntegerObject(3))
	}

	return dict, nil
}

// Password padding constant (32 bytes).
var passwordPadding = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41,
	0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80,
	0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

// padPassword pads or truncates a password to 32 bytes.
func padPassword(password []byte) []byte {
	result := make([]byte, 32)
	n := copy(result, password)
	copy(result[n:], passwordPadding)
	return result
}
