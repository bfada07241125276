package main

import (
	"fmt"
	"log"

	corecmd "github.com/m3rciful/subgate/core/cmd"
	"github.com/m3rciful/subgate/internal/bot"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return bot.Load(path)
		},
		Bootstrap: func(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			cfg, ok := carrier.(*bot.Config)
			if !ok {
				return nil, fmt.Errorf("unexpected config type %T", carrier)
			}
			return bot.NewApp(cfg)
		},
	})
	if err != nil {
		log.Fatalf("subgate: %v", err)
	}
}
