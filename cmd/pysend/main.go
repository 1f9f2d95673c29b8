package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pysend/pysend/internal/auth"
	"github.com/pysend/pysend/internal/chat"
	"github.com/pysend/pysend/internal/config"
	"github.com/pysend/pysend/internal/database"
	"github.com/pysend/pysend/internal/notify"
	"github.com/pysend/pysend/internal/realtime"
	postgresrepo "github.com/pysend/pysend/internal/repository/postgres"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	if err := database.Migrate(ctx, cfg); err != nil {
		log.Fatal(err)
	}
	pool, err := database.Connect(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()
	log.Println("Connected to database")

	// Repositories
	profileRepo := postgresrepo.NewProfileRepo(pool)
	channelRepo := postgresrepo.NewChannelRepo(pool)
	membershipRepo := postgresrepo.NewMembershipRepo(pool)
	messageRepo := postgresrepo.NewMessageRepo(pool)
	moderationRepo := postgresrepo.NewModerationRepo(pool)
	friendshipRepo := postgresrepo.NewFriendshipRepo(pool)
	favoriteRepo := postgresrepo.NewFavoriteRepo(pool)

	// Collaborators
	authn := auth.NewLocalAuth(profileRepo, cfg.JWTSecret)
	notifier := notify.NewLogNotifier(true)

	listener := realtime.NewListener(pool)
	go listener.Run(ctx)

	var typingTransport chat.TypingTransport
	var broadcast *realtime.Broadcast
	if cfg.BroadcastURL != "" {
		broadcast, err = realtime.DialBroadcast(ctx, cfg.BroadcastURL, cfg.SessionToken)
		if err != nil {
			log.Printf("broadcast relay unavailable, typing disabled: %v", err)
		} else {
			go broadcast.Run(ctx)
			defer broadcast.Close()
			typingTransport = broadcast
		}
	}

	if cfg.SessionToken == "" {
		log.Fatal("PYSEND_TOKEN is required")
	}
	authSession, err := authn.Resume(ctx, cfg.SessionToken)
	if err != nil {
		log.Fatalf("resuming session: %v", err)
	}

	session, err := chat.Start(ctx, chat.Deps{
		Auth:          authn,
		Push:          chat.ListenerPush{Listener: listener},
		Typing:        typingTransport,
		Notifier:      notifier,
		Profiles:      profileRepo,
		Channels:      channelRepo,
		Members:       membershipRepo,
		Messages:      messageRepo,
		Moderation:    moderationRepo,
		Friends:       friendshipRepo,
		Favorites:     favoriteRepo,
		CreatorEmails: cfg.CreatorEmails,
	}, authSession.User, "")
	if err != nil {
		var banErr *chat.BanError
		if errors.As(err, &banErr) {
			log.Fatalf("session refused: %v", banErr)
		}
		log.Fatal(err)
	}
	defer session.Close()

	if broadcast != nil {
		broadcast.OnTyping(session.Typing().Receive)
	}

	dir := session.RefreshSidebar(ctx)
	log.Printf("Session ready for %s, %d channels visible", authSession.User.Email, len(dir.Channels))

	<-ctx.Done()
}
