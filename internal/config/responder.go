package config

// ResponderConfig holds reply selection settings
type ResponderConfig struct {
	Locale    string `env:"HELPLINE_LOCALE" yaml:"locale" default:"IN"`
	MaxLength int    `env:"REPLY_MAX_LENGTH" yaml:"max_length" default:"300"`

	// Optional overrides of the built-in tables
	TemplatesFile string   `env:"REPLY_TEMPLATES_FILE" yaml:"templates_file"`
	HelplinesFile string   `env:"HELPLINES_FILE" yaml:"helplines_file"`
	PatternFiles  []string `env:"PATTERN_FILES" yaml:"pattern_files"`

	// Seed fixes template selection; 0 picks a random seed
	Seed uint64 `env:"REPLY_SEED" yaml:"seed"`
}
