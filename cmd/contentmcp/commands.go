package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/nainya/contentmcp/internal/config"
	"github.com/nainya/contentmcp/internal/logger"
	"github.com/nainya/contentmcp/internal/metrics"
	"github.com/nainya/contentmcp/internal/server"
	"github.com/nainya/contentmcp/internal/telemetry"
	"github.com/nainya/contentmcp/pkg/faults"
	"github.com/nainya/contentmcp/pkg/tools"
)

func newRootCommand() *cobra.Command {
	v := viper.New()
	root := &cobra.Command{
		Use:           "contentmcp",
		Short:         "contentmcp exposes a content repository as search, navigation, document and checkout tools",
		SilenceErrors: true,
		SilenceUsage:  true,
		Example: `
  # MCP over stdio against a local repository
  ALFRESCO_URL=http://localhost:8080 ALFRESCO_USERNAME=admin ALFRESCO_PASSWORD=admin contentmcp

  # Streamable HTTP with metrics on :9090
  contentmcp serve --transport http --http-listen :8000 --metrics-listen :9090

  # gRPC tool service backed by the in-memory repository
  contentmcp serve --backend memory --transport grpc

  # One-off tool call
  contentmcp call search_content '{"query":"budget","max_results":5}'
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, v)
		},
	}
	config.RegisterFlags(root.PersistentFlags())
	root.AddCommand(
		newServeCommand(v),
		newToolsCommand(),
		newCallCommand(v),
		newVersionCommand(),
	)
	return root
}

func newServeCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the tools on the configured transport",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, v)
		},
	}
}

func newToolsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the available tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, s := range tools.Descriptors() {
				summary, _, _ := strings.Cut(s.Description, "\n")
				fmt.Fprintf(tw, "%s\t%s\n", s.Name, summary)
			}
			return tw.Flush()
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "contentmcp %s\n", version)
		},
	}
}

func newCallCommand(v *viper.Viper) *cobra.Command {
	var (
		asJSON bool
		remote string
	)
	cmd := &cobra.Command{
		Use:   "call <tool> [json-arguments|-]",
		Short: "Invoke one tool and print its result",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			raw, err := readArguments(cmd.InOrStdin(), args[1:])
			if err != nil {
				return err
			}
			if remote != "" {
				return callRemote(cmd, remote, name, raw, asJSON)
			}

			cfg, err := config.Load(v, cmd.Flags())
			if err != nil {
				return err
			}
			log := logger.NewLogger(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Output: cmd.ErrOrStderr()})
			m := metrics.NewMetrics(prometheus.NewRegistry())
			defer m.Close()
			a, err := newApp(cfg, log, m)
			if err != nil {
				return err
			}
			out, err := a.facade.Call(cmd.Context(), name, raw)
			if err != nil {
				return describeFault(err)
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.SummaryText())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the structured result instead of the summary")
	cmd.Flags().StringVar(&remote, "remote", "", "invoke through a running gRPC tool service at this address")
	return cmd
}

func readArguments(stdin io.Reader, args []string) (json.RawMessage, error) {
	if len(args) == 0 {
		return nil, nil
	}
	var data []byte
	if args[0] == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read arguments: %w", err)
		}
		data = b
	} else {
		data = []byte(args[0])
	}
	if !json.Valid(data) {
		return nil, errors.New("arguments must be a JSON object")
	}
	return data, nil
}

func describeFault(err error) error {
	var fe *faults.Error
	if !errors.As(err, &fe) {
		return err
	}
	msg := fmt.Sprintf("%s: %s", fe.Kind, fe.Message)
	if fe.Details != "" {
		msg += " (" + fe.Details + ")"
	}
	return errors.New(msg)
}

func callRemote(cmd *cobra.Command, addr, name string, raw json.RawMessage, asJSON bool) error {
	var args map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return fmt.Errorf("arguments must be a JSON object: %w", err)
		}
	}
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()
	out, err := server.InvokeTool(ctx, conn, name, args)
	if err != nil {
		return err
	}
	if asJSON {
		b, err := out.GetFields()["result"].GetStructValue().MarshalJSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), out.GetFields()["summary"].GetStringValue())
	return nil
}

func runServe(cmd *cobra.Command, v *viper.Viper) error {
	cfg, err := config.Load(v, cmd.Flags())
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	log := logger.NewLogger(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(reg)
	defer m.Close()

	tp, err := telemetry.Setup(ctx, cfg.OTLPEndpoint, log.Component("telemetry"))
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
	}()

	a, err := newApp(cfg, log, m)
	if err != nil {
		return err
	}
	log.LogServerStart(cfg.Transport, listenAddr(cfg), cfg.Backend)
	defer log.LogServerShutdown()

	if cfg.MetricsListen != "" {
		obs := server.NewObservabilityServer(server.ObservabilityConfig{
			Addr:        cfg.MetricsListen,
			Gatherer:    reg,
			EnablePprof: cfg.EnablePprof,
			Ready: func(ctx context.Context) error {
				_, err := a.repo.RepositoryInfo(ctx)
				return err
			},
		}, log)
		go func() {
			if err := obs.Start(); err != nil {
				log.Error("observability server stopped").Err(err).Send()
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = obs.Shutdown(shutdownCtx)
		}()
	}

	switch cfg.Transport {
	case config.TransportGRPC:
		return serveGRPC(ctx, cfg, a, m, log)
	default:
		mcpSrv, err := server.NewMCPServer(server.MCPConfig{
			Facade:    a.facade,
			Metrics:   m,
			Logger:    log,
			Transport: cfg.Transport,
			Version:   version,
		})
		if err != nil {
			return err
		}
		if cfg.Transport == config.TransportHTTP {
			ln, err := net.Listen("tcp", cfg.HTTPListen)
			if err != nil {
				return fmt.Errorf("listen %s: %w", cfg.HTTPListen, err)
			}
			return mcpSrv.ServeHTTP(ctx, ln, cfg.HTTPPath)
		}
		return mcpSrv.ServeStdio(ctx)
	}
}

func serveGRPC(ctx context.Context, cfg *config.Config, a *app, m *metrics.Metrics, log *logger.Logger) error {
	srv, err := server.NewGRPCServer(a.facade, m, log)
	if err != nil {
		return err
	}
	lis, err := net.Listen("tcp", cfg.GRPCListen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPCListen, err)
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(lis)
	}()
	select {
	case <-ctx.Done():
		srv.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}

func listenAddr(cfg *config.Config) string {
	switch cfg.Transport {
	case config.TransportHTTP:
		return cfg.HTTPListen + cfg.HTTPPath
	case config.TransportGRPC:
		return cfg.GRPCListen
	default:
		return "stdin/stdout"
	}
}
