// Package container wires the board services, their stores, and the HTTP API,
// and owns their startup and shutdown order.
package container

import (
	"fmt"

	"github.com/garyjia/deptboard/internal/application/service"
	"github.com/garyjia/deptboard/internal/config"
	httpapi "github.com/garyjia/deptboard/internal/interfaces/http"
	"github.com/garyjia/deptboard/internal/interfaces/websocket"
	"github.com/garyjia/deptboard/pkg/database"
)

// databaseConfig maps the database section onto the store settings
func databaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		BusyTimeout:     cfg.Database.BusyTimeout,
	}
}

func serverConfig(cfg *config.Config) httpapi.ServerConfig {
	return httpapi.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}

func sequencerConfig(cfg *config.Config) service.SequencerConfig {
	return service.SequencerConfig{DropOffset: cfg.Kanban.DropOffset}
}

func hubConfig(cfg *config.Config) websocket.HubConfig {
	return websocket.HubConfig{
		SendBuffer:   cfg.Feed.SendBuffer,
		WriteTimeout: cfg.Feed.WriteTimeout,
		PingInterval: cfg.Feed.PingInterval,
	}
}

// validate checks the settings the container itself depends on
func validate(cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	return cfg.Validate()
}
