package constants

import "time"

const (
	DefaultBaseURL      = "https://boardgamegeek.com/xmlapi2"
	DefaultRequestDelay = 300 * time.Millisecond
	DefaultMinBackoff   = 10 * time.Second
	DefaultMaxBackoff   = 120 * time.Second

	// successes in a row before the backoff delay is halved
	BackoffSuccessThreshold = 15
)

const (
	MetadataBatchSize = 100
	DBBatchSize       = 100
)

const (
	DBMaxOpenConns    = 1
	DBMaxIdleConns    = 1
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
	StartTimeout    = 15 * time.Second
)

const (
	DescriptionLength = 1000
	MaxArtists        = 2
	MaxCategories     = 2
	MaxMechanics      = 4
)

const (
	ReportFileName = "report.json"
	CacheFileName  = "cache.db"
)

var PlayerColors = []string{"blue", "yellow", "green", "pink", "red", "orange", "black", "violet"}

const OverflowColor = "white"
