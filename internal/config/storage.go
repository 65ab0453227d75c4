package config

// StorageConfig holds file storage configuration for the file memory backend
// and backups.
type StorageConfig struct {
	Backend    string `env:"STORAGE_BACKEND" yaml:"backend" default:"local"`      // "local" or "s3"
	LocalDir   string `env:"STORAGE_LOCAL_DIR" yaml:"local_dir" default:"./data"` // Base directory for local storage
	S3Bucket   string `env:"STORAGE_S3_BUCKET" yaml:"s3_bucket"`                  // S3 bucket name
	S3Prefix   string `env:"STORAGE_S3_PREFIX" yaml:"s3_prefix"`                  // S3 object key prefix (optional)
	S3Region   string `env:"STORAGE_S3_REGION" yaml:"s3_region"`                  // AWS region
	S3Profile  string `env:"STORAGE_S3_PROFILE" yaml:"s3_profile"`                // AWS profile name (optional)
	S3Endpoint string `env:"STORAGE_S3_ENDPOINT" yaml:"s3_endpoint"`              // S3-compatible endpoint (optional)
}

// MemoryConfig holds conversation memory configuration
type MemoryConfig struct {
	Backend        string `env:"MEMORY_BACKEND" yaml:"backend" default:"file"` // "memory", "file", "redis", "postgres" or "sqlite"
	MemoryBound    int    `env:"MEMORY_BOUND" yaml:"memory_bound" default:"50"`
	AnalyticsBound int    `env:"MEMORY_ANALYTICS_BOUND" yaml:"analytics_bound" default:"200"`
	SQLitePath     string `env:"MEMORY_SQLITE_PATH" yaml:"sqlite_path" default:"./data/memory.db"`
	MigrateOnStart bool   `env:"MEMORY_MIGRATE_ON_START" yaml:"migrate_on_start" default:"true"`
}
