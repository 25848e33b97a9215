package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nicholasgasior/fileconvert-go/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP conversion service",
	Long: `Serve exposes the converter over HTTP:

  POST /convert   multipart upload: "file" part and "format" field
  GET  /formats   supported conversions
  GET  /healthz   liveness`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger := newLogger()
		srv := server.New(newEngine(logger), server.Config{
			Addr:           viper.GetString("addr"),
			MaxUploadBytes: viper.GetInt64("max-upload"),
			Timeout:        viper.GetDuration("timeout"),
			Logger:         logger,
		})
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().String("addr", server.DefaultAddr, "listen address")
	serveCmd.Flags().Int64("max-upload", server.DefaultMaxUploadBytes, "maximum upload size in bytes")
	serveCmd.Flags().Duration("timeout", server.DefaultTimeout, "per-request conversion deadline")

	viper.BindPFlag("addr", serveCmd.Flags().Lookup("addr"))
	viper.BindPFlag("max-upload", serveCmd.Flags().Lookup("max-upload"))
	viper.BindPFlag("timeout", serveCmd.Flags().Lookup("timeout"))

	rootCmd.AddCommand(serveCmd)
}
