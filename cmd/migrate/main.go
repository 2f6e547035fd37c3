package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"codedrop/internal/datastore"
	"codedrop/internal/models"
	"codedrop/internal/services"

	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/urfave/cli/v2"
)

func init() {
	// for development
	//nolint:errcheck
	godotenv.Load("../../.env")

	// for production
	//nolint:errcheck
	godotenv.Load("./.env")
}

func main() {
	app := &cli.App{
		Name: "migrate",
		Commands: []*cli.Command{
			commandMigration(),
			commandSeed(),
			commandImportCodes(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandMigration() *cli.Command {
	return &cli.Command{
		Name: "migrate",
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			db, err := getDb()
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableProject(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableCodeBatch(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableCode(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableRedemptionLog(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableWebhook(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableWebhookDelivery(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableNotification(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableConfig(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			fmt.Println("Migration success")

			return nil
		},
	}
}

func commandSeed() *cli.Command {
	return &cli.Command{
		Name: "seed",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "demo",
				Usage: "also create a demo project with a small ios batch",
			},
		},
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			db, err := getDb()
			if err != nil {
				log.Fatal(err)
			}

			defaults := map[string]string{
				services.CONFIG_RATE_LIMIT_PER_MINUTE:     fmt.Sprint(services.DEFAULT_RATE_LIMIT_PER_MINUTE),
				services.CONFIG_WEBHOOK_MAX_ATTEMPTS:      fmt.Sprint(services.DEFAULT_WEBHOOK_MAX_ATTEMPTS),
				services.CONFIG_WEBHOOK_TIMEOUT_IN_MILLIS: fmt.Sprint(services.DEFAULT_WEBHOOK_TIMEOUT_MS),
			}
			for key, value := range defaults {
				if err := datastore.UpsertConfig(ctx, db, &models.Config{Key: key, Value: value}); err != nil {
					log.Fatal(err)
				}
			}

			if c.Bool("demo") {
				if err := seedDemo(ctx, db); err != nil {
					log.Fatal(err)
				}
			}

			fmt.Println("Seed success")

			return nil
		},
	}
}

func seedDemo(ctx context.Context, db *bun.DB) error {
	project := &models.Project{
		Slug:             "demo",
		Name:             "Demo Launch",
		Description:      "Seeded demo project",
		Active:           true,
		EnableBundles:    true,
		LowCodeThreshold: 5,
	}
	if err := datastore.InsertProject(ctx, db, project); err != nil {
		return err
	}

	batch := &models.CodeBatch{
		ProjectID:  project.ID,
		Name:       "wave one",
		Platform:   models.PlatformIOS,
		Status:     models.BatchStatusCompleted,
		TotalCodes: 20,
		AppStoreID: "123456789",
	}
	if err := datastore.InsertCodeBatch(ctx, db, batch); err != nil {
		return err
	}

	codes := make([]models.Code, 0, batch.TotalCodes)
	for i := 0; i < batch.TotalCodes; i++ {
		codes = append(codes, models.Code{
			BatchID: batch.ID,
			Value:   fmt.Sprintf("DEMO-%04d", i),
		})
	}
	return datastore.BulkInsertCodes(ctx, db, codes)
}

func commandImportCodes() *cli.Command {
	return &cli.Command{
		Name:  "import-codes",
		Usage: "create a batch and load code values from a CSV (one value per row)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "input",
				Value: "./codes.csv",
			},
			&cli.StringFlag{
				Name:     "project",
				Usage:    "project slug",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "name",
				Usage:    "batch name",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "platform",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "reserved",
				Usage: "number of leading rows held back for the developer",
			},
		},
		Action: func(c *cli.Context) error {
			ctx := context.Background()

			db, err := getDb()
			if err != nil {
				log.Fatal(err)
			}

			platform := models.Platform(c.String("platform"))
			if !platform.Valid() {
				return fmt.Errorf("unknown platform %q", c.String("platform"))
			}

			project, err := datastore.GetProjectBySlug(ctx, db, c.String("project"))
			if err != nil {
				return err
			}

			file, err := os.Open(c.String("input"))
			if err != nil {
				return err
			}
			defer file.Close()

			var values []string
			reader := csv.NewReader(file)
			for {
				record, err := reader.Read()
				if err == io.EOF {
					break
				}
				if err != nil {
					return err
				}
				value := strings.TrimSpace(record[0])
				if value == "" {
					continue
				}
				values = append(values, value)
			}

			reserved := c.Int("reserved")
			if reserved > len(values) {
				return fmt.Errorf("reserved %d exceeds the %d imported codes", reserved, len(values))
			}

			batch := &models.CodeBatch{
				ProjectID:     project.ID,
				Name:          c.String("name"),
				Platform:      platform,
				Status:        models.BatchStatusProcessing,
				TotalCodes:    len(values),
				ReservedCodes: reserved,
			}
			if err := datastore.InsertCodeBatch(ctx, db, batch); err != nil {
				return err
			}

			codes := make([]models.Code, 0, len(values))
			for i, value := range values {
				codes = append(codes, models.Code{
					BatchID:           batch.ID,
					Value:             value,
					DeveloperReserved: i < reserved,
				})
			}
			if err := datastore.BulkInsertCodes(ctx, db, codes); err != nil {
				return err
			}

			if err := datastore.MarkBatchStatus(ctx, db, batch.ID, models.BatchStatusCompleted); err != nil {
				return err
			}

			fmt.Printf("Imported %d codes into batch %s (%d reserved)\n", len(values), batch.ID, reserved)

			return nil
		},
	}
}

func getDb() (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(os.Getenv("DB_DSN")),
		pgdriver.WithPassword(os.Getenv("DB_PASSWORD")),
	))

	db := bun.NewDB(sqldb, pgdialect.New())
	return db, nil
}
