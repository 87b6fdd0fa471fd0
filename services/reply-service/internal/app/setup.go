package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/leadcontact/outreach/internal/db"
	"github.com/leadcontact/outreach/internal/store"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Setup database and create a development user",
	Long:  "Creates database tables and inserts an initial user record for development/testing",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		pool, err := db.Connect(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer pool.Close()

		st := store.New(pool)

		fmt.Println("Running migrations...")
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		fmt.Println("Inserting development user...")
		devUserID := uuid.MustParse("00000000-0000-0000-0000-000000000001")
		insertUserSQL := `
			INSERT INTO users (id, email, name)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, name = EXCLUDED.name
		`

		if _, err := pool.Exec(ctx, insertUserSQL, devUserID, "dev@example.com", "Dev User"); err != nil {
			return fmt.Errorf("failed to insert development user: %w", err)
		}

		fmt.Printf("✓ Database setup complete. Development user: %s (dev@example.com)\n", devUserID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
