package types

import "time"

// BotConfig is the account and polling configuration, built once at startup
// and passed to every constructor that needs it.
type BotConfig struct {
	Handle         string        `mapstructure:"handle" yaml:"handle"`
	AppPassword    string        `mapstructure:"appPassword" yaml:"appPassword"`
	PDSURL         string        `mapstructure:"pdsUrl" yaml:"pdsUrl"`
	PollInterval   time.Duration `mapstructure:"pollInterval" yaml:"pollInterval"`
	MaxPerPoll     int           `mapstructure:"maxPerPoll" yaml:"maxPerPoll"`
	RequestTimeout time.Duration `mapstructure:"requestTimeout" yaml:"requestTimeout"`
	LedgerCapacity int           `mapstructure:"ledgerCapacity" yaml:"ledgerCapacity"`
}
