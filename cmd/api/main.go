package main

import (
	"fmt"
	"os"

	"github.com/yungbote/policylens-backend/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("Failed to init app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	a.Start()

	if !a.Cfg.RunServer {
		// Worker-only deployment: block until killed.
		a.Log.Info("RUN_SERVER disabled; running worker only")
		select {}
	}

	a.Log.Info("Server listening", "port", a.Cfg.Port)
	if err := a.Run(); err != nil {
		a.Log.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
