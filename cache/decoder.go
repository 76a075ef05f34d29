package cache

// DecodedAddress is the decomposition of a physical address. The
// concatenation tag | index | offset always reproduces the original address.
type DecodedAddress struct {
	// Tag is the address bits above index and offset.
	Tag uint64
	// Index selects the set.
	Index uint64
	// Offset is the byte offset within the line.
	Offset uint64
	// WordOffset is the word offset within the line.
	WordOffset uint64
	// Bank is the bank id (index modulo the bank count) when banking is
	// enabled, zero otherwise.
	Bank uint64
}

// AddressDecoder is a pure mapping from a physical address to its
// tag/index/offset/word/bank fields.
type AddressDecoder struct {
	offsetBits int
	indexBits  int
	tagBits    int
	wordShift  int

	banking  bool
	numBanks uint64

	addrMask uint64
}

// NewAddressDecoder derives the field widths from the configuration. It
// fails with a *ConfigError if the widths do not partition the address width
// exactly.
func NewAddressDecoder(cfg Config) (*AddressDecoder, error) {
	offsetBits := log2(cfg.BlockSizeBytes)
	indexBits := log2(cfg.NumSets())
	tagBits := cfg.AddressWidth - indexBits - offsetBits
	if tagBits < 0 {
		return nil, &ConfigError{"address_width",
			"tag, index and offset widths do not partition the address"}
	}

	d := &AddressDecoder{
		offsetBits: offsetBits,
		indexBits:  indexBits,
		tagBits:    tagBits,
		wordShift:  log2(cfg.WordSizeBytes()),
		banking:    cfg.BankingEnabled,
		numBanks:   uint64(cfg.NumBanks),
		addrMask:   widthMask(cfg.AddressWidth),
	}

	return d, nil
}

// Decode splits an address into its fields.
func (d *AddressDecoder) Decode(addr uint64) DecodedAddress {
	addr &= d.addrMask

	dec := DecodedAddress{
		Offset: addr & widthMask(d.offsetBits),
		Index:  (addr >> d.offsetBits) & widthMask(d.indexBits),
		Tag:    addr >> (d.offsetBits + d.indexBits),
	}
	dec.WordOffset = dec.Offset >> d.wordShift

	if d.banking {
		dec.Bank = dec.Index % d.numBanks
	}

	return dec
}

// LineAddress returns the line-aligned address the given address falls into.
func (d *AddressDecoder) LineAddress(addr uint64) uint64 {
	return (addr & d.addrMask) >> d.offsetBits << d.offsetBits
}

// OffsetBits returns the width of the byte-offset field.
func (d *AddressDecoder) OffsetBits() int {
	return d.offsetBits
}

// IndexBits returns the width of the set-index field.
func (d *AddressDecoder) IndexBits() int {
	return d.indexBits
}

// TagBits returns the width of the tag field.
func (d *AddressDecoder) TagBits() int {
	return d.tagBits
}

func widthMask(bits int) uint64 {
	if bits >= 64 {
		return ^uint64(0)
	}
	return (1 << bits) - 1
}
