package generic

import "sync"

// Name is an interned PDF name token. Two names obtained from the same
// pool for equal text are identity-equal, so they can be compared with ==.
// Names are only created through a Pool.
type Name struct {
	value string
}

// Value returns the name text without the leading slash.
func (n *Name) Value() string {
	return n.value
}

// String returns the name text without the leading slash.
func (n *Name) String() string {
	return n.value
}

// Clone implements PdfObject. Names are immutable and shared.
func (n *Name) Clone() PdfObject {
	return n
}

// Pool is a canonical table of name tokens. Lookups of already-interned
// names proceed concurrently; first-seen inserts take the exclusive lock.
type Pool struct {
	mu    sync.RWMutex
	table map[string]*Name
}

// NewPool creates an empty interning pool.
func NewPool() *Pool {
	return &Pool{table: make(map[string]*Name)}
}

// Intern returns the canonical Name for text, inserting it on first use.
// Interning never fails.
func (p *Pool) Intern(text string) *Name {
	p.mu.RLock()
	n := p.table[text]
	p.mu.RUnlock()
	if n != nil {
		return n
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if n := p.table[text]; n != nil {
		return n
	}
	n = &Name{value: text}
	p.table[text] = n
	return n
}

// Len returns the number of interned names.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.table)
}

// DefaultPool is the process-wide pool used by NewName. Writers that need
// a session-scoped table can construct their own Pool and inject it.
var DefaultPool = NewPool()

// NewName interns text in the default pool.
func NewName(text string) *Name {
	return DefaultPool.Intern(text)
}

// Names the serializer core needs, interned once at startup.
var (
	NameType         = NewName("Type")
	NameRoot         = NewName("Root")
	NameInfo         = NewName("Info")
	NameEncrypt      = NewName("Encrypt")
	NameID           = NewName("ID")
	NameSize         = NewName("Size")
	NamePrev         = NewName("Prev")
	NameXRefStm      = NewName("XRefStm")
	NameDocChecksum  = NewName("DocChecksum")
	NameLength       = NewName("Length")
	NameFilter       = NewName("Filter")
	NameSubFilter    = NewName("SubFilter")
	NameSig          = NewName("Sig")
	NameDocTimeStamp = NewName("DocTimeStamp")
	NameContents     = NewName("Contents")
	NameByteRange    = NewName("ByteRange")
	NameXObject      = NewName("XObject")
	NameResources    = NewName("Resources")
	NameCatalog      = NewName("Catalog")
	NameProducer     = NewName("Producer")
	NameCreationDate = NewName("CreationDate")
	NameModDate      = NewName("ModDate")
	NameM            = NewName("M")
	NameV            = NewName("V")
)
