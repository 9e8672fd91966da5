package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/warelink/stocksync_backend/config"
	"github.com/warelink/stocksync_backend/models"
)

// Seeds the first operator account and, optionally, a provider API
// credential so partner sites can start pulling stock.
func main() {
	_ = godotenv.Load()

	username := flag.String("username", "admin", "operator username")
	password := flag.String("password", "", "operator password (required)")
	role := flag.String("role", string(models.UserRoleAdmin), "operator role")
	credentialLabel := flag.String("credential-label", "", "when set, also create a provider API credential with this label")
	flag.Parse()

	logger := config.GetLogger()
	if *password == "" {
		logger.Error("a password is required: -password <value>")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	models.MigrateTable(db)

	ctx := context.Background()
	user, err := models.CreateUser(db, ctx, &models.NewUser{
		Username: *username,
		Password: *password,
		Role:     models.UserRole(*role),
	})
	if err != nil {
		config.LogError(logger, "seed-admin", "main", "create operator", *username, err)
		os.Exit(1)
	}
	logger.WithFields(logrus.Fields{"username": user.Username, "role": user.Role}).Info("operator account created")

	if *credentialLabel != "" {
		cred := models.ApiCredential{
			APIKey:    uuid.NewString(),
			APISecret: uuid.NewString(),
			Label:     *credentialLabel,
			Enabled:   true,
		}
		if err := db.WithContext(ctx).Create(&cred).Error; err != nil {
			config.LogError(logger, "seed-admin", "main", "create api credential", *credentialLabel, err)
			os.Exit(1)
		}
		// Printed once; the secret is not recoverable from the API.
		logger.WithFields(logrus.Fields{
			"label":      cred.Label,
			"api_key":    cred.APIKey,
			"api_secret": cred.APISecret,
		}).Info("provider API credential created")
	}
}
