// Command coachcheck smoke-tests a running chess-coach server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/park285/chess-coach/internal/adapter/chesspresenter"
	"github.com/park285/chess-coach/internal/coachclient"
	"github.com/park285/chess-coach/pkg/chessdto"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func main() {
	baseURL := flag.String("url", envOr("COACH_BASE_URL", "http://127.0.0.1:3000"), "server base URL")
	move := flag.String("move", "e4", "move to analyze from the start position")
	skipWS := flag.Bool("skip-ws", false, "skip the real-time room check")
	flag.Parse()

	out := chesspresenter.NewPresenter(os.Stdout)
	f := chesspresenter.NewFormatter()
	client := coachclient.NewClient(*baseURL, coachclient.WithTimeout(20*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	h, err := client.Health(ctx)
	if err != nil {
		log.Fatalf("/healthz error: %v", err)
	}
	log.Printf("/healthz ok: rooms=%d engine=%t", h.Rooms, h.Engine)

	if bots, err := client.Bots(ctx); err != nil {
		log.Printf("/api/bots error: %v", err)
	} else {
		_ = out.Show(f.Bots(bots))
	}

	if a, err := client.AnalyzeMove(ctx, startFEN, *move); err != nil {
		log.Printf("/api/analyze-move error: %v", err)
	} else {
		_ = out.Show(f.Analysis(a))
	}

	if user, pass := os.Getenv("ADMIN_USERNAME"), os.Getenv("ADMIN_PASSWORD"); user != "" && pass != "" {
		if _, err := client.AdminLogin(ctx, user, pass); err != nil {
			log.Printf("/api/admin-login error: %v", err)
		} else {
			log.Printf("/api/admin-login ok")
			defer func() { _ = client.AdminLogout(context.Background()) }()
		}
	}

	if *skipWS {
		return
	}
	if err := checkRoom(ctx, *baseURL, out, f); err != nil {
		log.Printf("ws check error: %v", err)
	}
}

// checkRoom joins a throwaway bot room, plays one move and waits for the reply.
func checkRoom(ctx context.Context, baseURL string, out *chesspresenter.Presenter, f *chesspresenter.Formatter) error {
	wsURL := "ws" + strings.TrimPrefix(strings.TrimRight(baseURL, "/"), "http") + "/ws"
	sock := coachclient.NewSocket(wsURL)
	sock.OnStateChange(func(state coachclient.SocketState) {
		log.Printf("WS state: %d", state)
	})
	if err := sock.Connect(ctx); err != nil {
		return err
	}
	defer func() { _ = sock.Close(context.Background()) }()

	states := sock.Watch(chessdto.EventRoomState)
	defer states.Stop()
	roomID := fmt.Sprintf("coachcheck-%d", time.Now().UnixNano())

	if err := sock.JoinRoom(ctx, chessdto.JoinRoom{RoomID: roomID, PlayerName: "coachcheck", Mode: "bot", Bot: &chessdto.BotProfile{ID: "bot-200"}}); err != nil {
		return err
	}
	var st chessdto.RoomState
	if err := states.Wait(ctx, &st); err != nil {
		return err
	}
	if err := sock.MakeMove(ctx, roomID, chessdto.MoveInput{Text: "e4"}); err != nil {
		return err
	}
	for len(st.History) < 2 {
		if err := states.Wait(ctx, &st); err != nil {
			return err
		}
	}
	return out.Show(f.Room(st))
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
