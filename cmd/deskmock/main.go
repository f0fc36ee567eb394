package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/deskchat/internal/fakedesk"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:5000", "listen address")
	secret := flag.String("secret", "", "HS256 token secret (default: built-in development secret)")
	agent := flag.String("agent", "Ana", "name of the echo agent")
	echo := flag.Bool("echo", true, "let the echo agent answer every message")
	delay := flag.Duration("echo-delay", 800*time.Millisecond, "how long the agent types before answering")
	blacklist := flag.String("blacklist", "", "comma-separated merchant ids refused a room")
	issue := flag.String("issue", "", "print a token for merchant id[:username] and exit")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	desk := fakedesk.New(fakedesk.Options{
		Secret:    *secret,
		Blacklist: splitList(*blacklist),
		AgentName: *agent,
		Echo:      *echo,
		EchoDelay: *delay,
		Logger:    logger,
	})

	if *issue != "" {
		id, name, _ := strings.Cut(*issue, ":")
		if name == "" {
			name = id
		}
		token, err := desk.IssueToken(id, name, "", 30*24*time.Hour)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           desk.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("deskmock listening",
		zap.String("api", "http://"+*addr+"/api"),
		zap.String("socket", "ws://"+*addr+"/ws"),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("deskmock stopped")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
