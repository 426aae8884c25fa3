package bootstrap

import (
	"github.com/fernandomesquita/stenopro/config"
)

// Config is satisfied by any struct embedding config.ServiceConfig.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
