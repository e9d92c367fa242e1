package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"food-marketplace-api/autoaccept"
	"food-marketplace-api/config"
	"food-marketplace-api/events"
	"food-marketplace-api/handlers"
	"food-marketplace-api/middleware"
	"food-marketplace-api/realtime"
	"food-marketplace-api/routes"
	"food-marketplace-api/services"
	"food-marketplace-api/storage"
	"food-marketplace-api/store"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and websocket API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("port", "", "port to listen on")
	cobra.CheckErr(viper.BindPFlag("port", serveCmd.Flags().Lookup("port")))
}

func newPublisher(cfg config.Kafka) (events.Publisher, error) {
	if !cfg.Enabled {
		return events.LogPublisher{}, nil
	}
	return events.NewKafkaPublisher(cfg.Brokers, cfg.Topic)
}

func newImageStore(ctx context.Context, cfg config.Storage) (storage.ImageStore, error) {
	if cfg.Driver == "s3" {
		return storage.NewS3Store(ctx, cfg.Bucket, cfg.Region)
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	return storage.NewLocalStore(cfg.Dir, cfg.BaseURL), nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	st := store.New(db, realtime.NewHub())

	publisher, err := newPublisher(cfg.Kafka)
	if err != nil {
		return err
	}
	images, err := newImageStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	rewards := services.NewRewardService(st, cfg.Rewards)
	orders := services.NewOrderService(st, publisher, rewards, cfg.Fees)
	sched := autoaccept.NewScheduler(orders, orders.CountdownOptions(cfg.AutoAccept))
	orders.AttachScheduler(sched)

	// resume countdowns for orders placed before a restart
	pending, err := orders.PendingOrders(ctx)
	if err != nil {
		return err
	}
	sched.ArmAll(pending)
	log.Printf("⏱️  Re-armed %d pending order countdowns", sched.Armed())

	h := handlers.New(handlers.Deps{
		Store:         st,
		Auth:          middleware.NewAuth(cfg.JWT.Secret, cfg.JWT.TTL),
		Orders:        orders,
		Rewards:       rewards,
		Ratings:       services.NewRatingService(st),
		Messages:      services.NewMessageService(st),
		Applications:  services.NewApplicationService(st),
		Images:        images,
		MaxImageBytes: cfg.Storage.MaxBytes,
	})

	// Create Gin router with default middleware (logger + recovery)
	r := gin.Default()
	r.Use(middleware.CORS(cfg.CORSOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "Food Marketplace API",
			"version": "2.0.0",
		})
	})
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "🍔 Welcome to the Food Marketplace API",
			"docs":    "/api/state-machine",
			"health":  "/health",
			"roles":   []string{"customer", "restaurant", "rider", "admin"},
		})
	})
	routes.Setup(r, h)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("🚀 Server running on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("🛑 Shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(sctx)
		sched.Close()
		if cerr := publisher.Close(); cerr != nil && err == nil {
			err = cerr
		}
		return err
	})
	return g.Wait()
}
