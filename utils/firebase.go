package utils

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/kswpuk/portal-api/config"
)

var (
	firebaseApp *firebase.App
	fcmClient   *messaging.Client
	fcmOnce     sync.Once
	fcmInitErr  error
)

// InitFirebase initializes the Firebase Admin SDK and FCM client once.
// Missing credentials are not fatal: the portal runs without push
// notifications and the messaging channel stays disabled.
func InitFirebase(cfg *config.Config) error {
	fcmOnce.Do(func() {
		ctx := context.Background()

		credentialsPath := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
		if credentialsPath == "" {
			credentialsPath = cfg.FCMCredentialsPath
		}
		if credentialsPath == "" {
			fcmInitErr = fmt.Errorf("no FCM credentials configured")
			return
		}

		if _, err := os.Stat(credentialsPath); os.IsNotExist(err) {
			fcmInitErr = fmt.Errorf("firebase credentials file not found: %s", credentialsPath)
			return
		}

		app, err := firebase.NewApp(ctx,
			&firebase.Config{ProjectID: cfg.FCMProjectID},
			option.WithCredentialsFile(credentialsPath),
		)
		if err != nil {
			fcmInitErr = fmt.Errorf("firebase app initialization failed: %w", err)
			return
		}

		client, err := app.Messaging(ctx)
		if err != nil {
			firebaseApp = app
			fcmInitErr = fmt.Errorf("FCM client initialization failed: %w", err)
			return
		}

		firebaseApp = app
		fcmClient = client
		log.Println("✅ Firebase and FCM initialized")
	})

	return fcmInitErr
}

// GetFCMClient returns the FCM client, or nil when push is disabled
func GetFCMClient() *messaging.Client {
	return fcmClient
}

// IsFCMEnabled reports whether push notifications can be sent
func IsFCMEnabled() bool {
	return fcmClient != nil
}
