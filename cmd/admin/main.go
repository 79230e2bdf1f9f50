package main

import (
	"fmt"
	"os"

	"studio-api/internal/config"
	"studio-api/internal/database"
	"studio-api/pkg/logging"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	cmd := newRootCommand(&commandContext{openDB: openConfiguredDB})
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openConfiguredDB() (*gorm.DB, error) {
	if err := config.InitConfig(); err != nil {
		return nil, err
	}
	logging.InitLogging(config.AppConfig.LogLevel)
	return database.OpenDB(config.AppConfig.DatabaseURL, config.AppConfig.SQLitePath, logger.Silent)
}
