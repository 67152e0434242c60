package main

import (
	"context"

	"github.com/alexsedov/NeuroAssistBot/internal/bot/app"
	"github.com/sirupsen/logrus"
)

func main() {
	ctx := context.Background()
	application, err := app.NewApp(ctx)
	if err != nil {
		logrus.Fatalf("failed to init app: %v", err)
	}
	application.Run()
}
