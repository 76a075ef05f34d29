// Package cache provides a cycle-level functional model of a multi-port,
// set-associative cache controller.
//
// The model is a deterministic state machine: the driver calls
// Controller.Advance once per simulated clock cycle with the requests of all
// client ports, and receives the per-port responses plus a counter snapshot.
// Fetch-on-miss and writeback traffic goes to an injected Memory collaborator.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
)

// Policy selects the replacement policy used for victim selection.
type Policy string

// The closed set of replacement policies. The policy is fixed at
// construction and never switched at runtime.
const (
	PolicyPLRU   Policy = "PLRU"
	PolicyLRU    Policy = "LRU"
	PolicyFIFO   Policy = "FIFO"
	PolicyRandom Policy = "RANDOM"
)

// ConfigError reports an invalid parameter combination. It is fatal at
// construction and never recovered from.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("cache config: %s: %s", e.Field, e.Reason)
}

// Config holds the construction parameters of a Controller. It is evaluated
// once at construction and is immutable for the controller's lifetime.
type Config struct {
	// AddressWidth is the physical address width in bits.
	AddressWidth int `json:"address_width"`

	// CacheSizeBytes is the total data capacity. It must equal
	// Ways * blocks-per-way * BlockSizeBytes.
	CacheSizeBytes int `json:"cache_size_bytes"`

	// BlockSizeBytes is the cache line size. Must be a power of two.
	BlockSizeBytes int `json:"block_size_bytes"`

	// Ways is the associativity. Must be a power of two; the PLRU policy
	// additionally requires exactly 4 ways (its tree state is 3 bits).
	Ways int `json:"ways"`

	// ClientPorts is the number of concurrently requesting clients.
	ClientPorts int `json:"client_ports"`

	// DataWidth is the width of one data word in bits.
	DataWidth int `json:"data_width"`

	// Policy selects the replacement policy.
	Policy Policy `json:"policy"`

	// WriteBack selects write-back (true) or write-through (false) handling.
	WriteBack bool `json:"write_back"`

	// WriteAllocate selects whether a write miss installs a new line.
	WriteAllocate bool `json:"write_allocate"`

	// ECCEnabled protects every stored word with SECDED parity.
	ECCEnabled bool `json:"ecc_enabled"`

	// WayPredictEnabled enables the way predictor observer.
	WayPredictEnabled bool `json:"way_predict_enabled"`

	// PrefetchEnabled enables the per-port stride prefetcher.
	PrefetchEnabled bool `json:"prefetch_enabled"`

	// BankingEnabled enables bank-conflict arbitration across NumBanks.
	BankingEnabled bool `json:"banking_enabled"`

	// NumBanks is the number of banks when banking is enabled.
	NumBanks int `json:"num_banks"`

	// AIAdaptiveEnabled enables the access-pattern classifier.
	AIAdaptiveEnabled bool `json:"ai_adaptive_enabled"`

	// QoSEnabled applies the per-cycle QoS partition mask to victim
	// selection.
	QoSEnabled bool `json:"qos_enabled"`
}

// DefaultConfig returns a 4-way, 16KB, dual-port configuration with all
// optional subsystems enabled.
func DefaultConfig() Config {
	return Config{
		AddressWidth:      32,
		CacheSizeBytes:    16 * 1024,
		BlockSizeBytes:    64,
		Ways:              4,
		ClientPorts:       2,
		DataWidth:         32,
		Policy:            PolicyPLRU,
		WriteBack:         true,
		WriteAllocate:     true,
		ECCEnabled:        true,
		WayPredictEnabled: true,
		PrefetchEnabled:   true,
		BankingEnabled:    true,
		NumBanks:          2,
		AIAdaptiveEnabled: true,
		QoSEnabled:        false,
	}
}

// NumSets returns the number of sets (blocks per way).
func (c Config) NumSets() int {
	return c.CacheSizeBytes / (c.Ways * c.BlockSizeBytes)
}

// WordSizeBytes returns the size of one data word in bytes.
func (c Config) WordSizeBytes() int {
	return c.DataWidth / 8
}

// WordsPerLine returns the number of data words in one cache line.
func (c Config) WordsPerLine() int {
	return c.BlockSizeBytes / c.WordSizeBytes()
}

// Validate checks the parameter combination. It returns a *ConfigError
// describing the first violation found, or nil.
func (c Config) Validate() error {
	if c.AddressWidth < 8 || c.AddressWidth > 64 {
		return &ConfigError{"address_width", "must be between 8 and 64"}
	}
	if c.DataWidth < 8 || c.DataWidth > 64 || !isPowerOfTwo(c.DataWidth) {
		return &ConfigError{"data_width", "must be a power of two between 8 and 64"}
	}
	if c.BlockSizeBytes <= 0 || !isPowerOfTwo(c.BlockSizeBytes) {
		return &ConfigError{"block_size_bytes", "must be a positive power of two"}
	}
	if c.Ways <= 0 || !isPowerOfTwo(c.Ways) {
		return &ConfigError{"ways", "must be a positive power of two"}
	}
	if c.Policy == PolicyPLRU && c.Ways != 4 {
		return &ConfigError{"ways", "PLRU tree state encodes exactly 4 ways"}
	}
	switch c.Policy {
	case PolicyPLRU, PolicyLRU, PolicyFIFO, PolicyRandom:
	default:
		return &ConfigError{"policy", fmt.Sprintf("unknown policy %q", c.Policy)}
	}
	if c.BlockSizeBytes%c.WordSizeBytes() != 0 {
		return &ConfigError{"block_size_bytes", "must hold a whole number of data words"}
	}
	setSize := c.Ways * c.BlockSizeBytes
	if c.CacheSizeBytes <= 0 || c.CacheSizeBytes%setSize != 0 {
		return &ConfigError{"cache_size_bytes",
			"must equal ways * blocks-per-way * block_size_bytes"}
	}
	if !isPowerOfTwo(c.NumSets()) {
		return &ConfigError{"cache_size_bytes", "blocks per way must be a power of two"}
	}
	if log2(c.BlockSizeBytes)+log2(c.NumSets()) > c.AddressWidth {
		return &ConfigError{"address_width",
			"index and offset widths do not fit in the address"}
	}
	if c.ClientPorts < 1 {
		return &ConfigError{"client_ports", "need at least one port"}
	}
	if c.ClientPorts > 64 {
		return &ConfigError{"client_ports", "at most 64 ports"}
	}
	if c.Ways > 64 {
		return &ConfigError{"ways", "at most 64 ways"}
	}
	if c.BankingEnabled && c.NumBanks < 1 {
		return &ConfigError{"num_banks", "need at least one bank when banking is enabled"}
	}
	return nil
}

// LoadConfig loads a Config from a JSON file, starting from DefaultConfig
// for any omitted fields.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read cache config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("failed to parse cache config: %w", err)
	}

	return config, nil
}

// SaveConfig writes the Config to a JSON file.
func (c Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache config file: %w", err)
	}

	return nil
}

func isPowerOfTwo(v int) bool {
	return v > 0 && v&(v-1) == 0
}

func log2(v int) int {
	n := 0
	for v > 1 {
		v >>= 1
		n++
	}
	return n
}
