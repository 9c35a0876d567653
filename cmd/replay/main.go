// cmd/replay/main.go
//
// replay は保存済みの会話 JSON を webhook と同じ処理で再投入します。
// RevisionConflict で失敗した配信のやり直しに使います。
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"diary/config"
	"diary/services"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("replay failed: %v", err)
	}
}

func run(args []string, stdout io.Writer) error {
	flags := flag.NewFlagSet("replay", flag.ContinueOnError)
	configFile := flags.String("config", "", "YAML config file")
	uid := flags.String("uid", "", "uid recorded with each delivery")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() == 0 {
		return fmt.Errorf("usage: replay [-config file] [-uid uid] record.json...")
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return err
	}
	if !cfg.Configured() {
		return services.ErrConfigurationMissing
	}

	store, err := services.NewStore(context.Background(), cfg)
	if err != nil {
		return err
	}

	deliveries, closeDeliveries, err := connectDeliveryLog(cfg)
	if err != nil {
		return err
	}
	defer closeDeliveries()

	service := services.NewDiaryService(cfg, store, deliveries, nil)
	encoder := json.NewEncoder(stdout)
	encoder.SetIndent("", "  ")

	failures := 0
	for i, path := range flags.Args() {
		body, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		ctx := services.WithRequestID(context.Background(), fmt.Sprintf("replay-%d", i+1))
		result, err := service.HandleWebhook(ctx, body, *uid)
		if err != nil {
			log.Printf("Error replaying %s: %v", path, err)
			failures++
			continue
		}
		if failed, _ := result.Failed(); failed {
			failures++
		}
		if err := encoder.Encode(result); err != nil {
			return err
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d records were not fully saved", failures, flags.NArg())
	}
	return nil
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFile(path)
}

// connectDeliveryLog は数回リトライして Postgres に接続します。DATABASE_URL が無ければ記録しません。
func connectDeliveryLog(cfg config.Config) (services.DeliveryRecorder, func(), error) {
	if cfg.DatabaseURL == "" {
		return services.NopDeliveryLog{}, func() {}, nil
	}

	var pg *services.PostgresDeliveryLog
	var err error
	for i := 0; i < 3; i++ {
		pg, err = services.NewPostgresDeliveryLog(cfg.DatabaseURL)
		if err == nil {
			break
		}
		log.Printf("Attempt %d: Failed to connect delivery log: %v", i+1, err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect delivery log after retries: %w", err)
	}
	return pg, func() { _ = pg.Close() }, nil
}
