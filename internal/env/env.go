package env

import (
	"github.com/HanKun113/AN6007-dic/internal/config"
)

var Cfg *config.Config
