package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	adminEmail    string
	adminPassword string
	adminName     string
)

var seedAdminCmd = &cobra.Command{
	Use:   "seed-admin",
	Short: "Create an admin account if it does not exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, _, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		rdb, closeRedis, err := openRedis(ctx)
		if err != nil {
			return err
		}
		defer closeRedis()

		engine, err := buildEngine(st, rdb)
		if err != nil {
			return err
		}
		defer engine.Close()

		user, created, err := engine.SeedAdmin(ctx, adminEmail, adminPassword, adminName)
		if err != nil {
			return err
		}
		if !created {
			fmt.Fprintf(cmd.OutOrStdout(), "User %s already exists (role %s)\n", user.Email, user.Role)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created admin %s (id %d)\n", user.Email, *user.ID)
		return nil
	},
}

func init() {
	seedAdminCmd.Flags().StringVar(&adminEmail, "email", "", "Admin email")
	seedAdminCmd.Flags().StringVar(&adminPassword, "password", "", "Admin password")
	seedAdminCmd.Flags().StringVar(&adminName, "name", "", "Admin full name")
	_ = seedAdminCmd.MarkFlagRequired("email")
	_ = seedAdminCmd.MarkFlagRequired("password")
}
