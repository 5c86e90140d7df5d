package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

type clientConfig struct {
	Server string
	Token  string
	UserID uint64
}

// loadConfig 命令行参数优先，其次是 IMCLIENT_* 环境变量
func loadConfig(args []string) (*clientConfig, error) {
	fs := pflag.NewFlagSet("imclient", pflag.ContinueOnError)
	fs.String("server", "http://127.0.0.1:8080", "服务端地址")
	fs.String("token", "", "登录后获得的 JWT")
	fs.Uint64("user-id", 0, "当前用户 ID")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix("IMCLIENT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}

	cfg := &clientConfig{
		Server: v.GetString("server"),
		Token:  v.GetString("token"),
		UserID: v.GetUint64("user-id"),
	}
	if cfg.Token == "" || cfg.UserID == 0 {
		return nil, errors.New("需要 --token 与 --user-id")
	}
	return cfg, nil
}

func main() {
	log.SetDefault(log.New(log.NewTextHandler(os.Stderr, &log.HandlerOptions{Level: log.LevelWarn})))

	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s := newSession(cfg.UserID, newAPIClient(cfg.Server, cfg.Token), os.Stdout)
	if err := s.Connect(ctx, cfg.Server, cfg.Token); err != nil {
		log.Error("连接失败", "err", err)
		os.Exit(1)
	}
	defer s.Shutdown()
	if err := s.Seed(ctx); err != nil {
		log.Error("加载会话失败", "err", err)
		os.Exit(1)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.Listen(ctx)
	})
	g.Go(func() error {
		err := readCommands(ctx, s)
		s.Shutdown()
		return err
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("客户端退出", "err", err)
	}
}

// readCommands /open <id>、/close、/quit，其余输入作为消息发送
func readCommands(ctx context.Context, s *session) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(l)
		}

		var err error
		switch cmd, arg, _ := strings.Cut(line, " "); cmd {
		case "":
		case "/quit":
			return nil
		case "/close":
			s.Close()
			s.render()
		case "/open":
			id, perr := strconv.ParseUint(strings.TrimSpace(arg), 10, 64)
			if perr != nil {
				err = fmt.Errorf("非法的用户 ID: %q", arg)
				break
			}
			err = s.Open(ctx, id)
		default:
			err = s.Send(ctx, line)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}
