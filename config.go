package cex

// Config holds options that restrict numeric evaluation and literal decoding.
type Config struct {
	// If true, binary operators other than addition and subtraction are not
	// evaluated and out-of-range integers and all floating point values
	// decode as unknown.
	AssumeLinearArithmetics bool `yaml:"assumeLinearArithmetics"`

	// Allows multiplication when one operand is a literal, even in linear mode.
	AllowMultiplicationWithConstants bool `yaml:"allowMultiplicationWithConstants"`

	// Allows division and modulo by a literal divisor, even in linear mode.
	AllowDivisionAndModuloByConstants bool `yaml:"allowDivisionAndModuloByConstants"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{}
}
