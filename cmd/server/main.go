package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"housesale_back_end/internal/cache"
	"housesale_back_end/internal/config"
	"housesale_back_end/internal/credits"
	"housesale_back_end/internal/database"
	"housesale_back_end/internal/events"
	"housesale_back_end/internal/handlers/payment"
	"housesale_back_end/internal/payos"
	"housesale_back_end/internal/repository"
	"housesale_back_end/internal/routes"
	"housesale_back_end/internal/stripepay"
	"housesale_back_end/internal/utils"
)

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Configuration invalide : %v", err)
	}
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	if err := database.ConnectDatabases(cfg); err != nil {
		log.Fatalf("❌ Connexion aux bases impossible : %v", err)
	}
	defer database.CloseScylla()
	defer database.CloseRedis()

	usersSession, err := database.GetUsersSession()
	if err != nil {
		log.Fatalf("❌ Session users : %v", err)
	}
	ordersSession, err := database.GetOrdersSession()
	if err != nil {
		log.Fatalf("❌ Session orders : %v", err)
	}

	gateway, err := newGateway(cfg)
	if err != nil {
		log.Fatalf("❌ Passerelle de paiement : %v", err)
	}

	orderEvents := cache.NewOrderEvents(database.Redis)
	notifiers := credits.Notifiers{orderEvents}

	var publisher *events.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewPublisher(events.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic))
		notifiers = append(notifiers, publisher)
		log.Printf("✅ Kafka activé (topic %s)", cfg.Kafka.Topic)
	}
	if cfg.SMTP.Host != "" {
		mailer := utils.NewMailer(utils.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
		notifiers = append(notifiers, utils.NewReceiptNotifier(mailer, cfg.ClientURL))
		log.Println("✅ Reçus e-mail activés")
	} else {
		log.Warn("⚠️ SMTP non configuré : pas de reçu e-mail")
	}

	svc := credits.NewService(credits.Deps{
		Packages: cache.NewPackageCache(repository.NewPackageStore(ordersSession), database.Redis),
		Coupons:  repository.NewCouponStore(ordersSession),
		Orders:   repository.NewOrderStore(ordersSession),
		Ledger:   repository.NewLedgerStore(usersSession),
		Gateway:  gateway,
		Lock:     cache.NewReconcileLock(database.Redis),
		Notifier: notifiers,
	}, credits.Config{
		MinPayableAmount: cfg.Credits.MinPayableAmount,
		MaxQuantity:      cfg.Credits.MaxQuantity,
		Description:      cfg.Credits.Description,
		LockTTL:          cfg.Credits.LockTTL,
	})

	auditStore := repository.NewAuditStore(usersSession)
	auditor := utils.NewAuditor(auditStore)
	handler := payment.New(svc, payment.Options{
		PayOSChecksumKey:    cfg.PayOS.ChecksumKey,
		StripeWebhookSecret: cfg.Stripe.WebhookSecret,
		Subscriber:          orderEvents,
		Audit:               auditStore,
	})

	gin.SetMode(cfg.GinMode)
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	routes.RegisterRoutes(r, routes.Deps{
		Payment:   handler,
		JWTSecret: cfg.JWTSecret,
		Limiter:   cache.NewRateLimiter(database.Redis),
		Auditor:   auditor,
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Println("🚀 Serveur lancé sur le port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Serveur arrêté : %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Arrêt du serveur...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("❌ Arrêt forcé")
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			log.WithError(err).Warn("⚠️ Fermeture Kafka")
		}
	}
}

// newGateway choisit l'adaptateur selon PAYMENT_PROVIDER
func newGateway(cfg *config.Config) (credits.Gateway, error) {
	switch cfg.PaymentProvider {
	case "stripe":
		if cfg.Stripe.SecretKey == "" || cfg.Stripe.WebhookSecret == "" {
			return nil, errors.New("STRIPE_SECRET_KEY et STRIPE_WEBHOOK_SECRET sont requis")
		}
		log.Println("✅ Stripe initialisé")
		return stripepay.NewGateway(cfg.Stripe.SecretKey), nil
	case "payos", "":
		if cfg.PayOS.ClientID == "" || cfg.PayOS.APIKey == "" || cfg.PayOS.ChecksumKey == "" {
			return nil, errors.New("PAYOS_CLIENT_ID, PAYOS_API_KEY et PAYOS_CHECKSUM_KEY sont requis")
		}
		client := payos.NewClient(payos.Config{
			ClientID:    cfg.PayOS.ClientID,
			APIKey:      cfg.PayOS.APIKey,
			ChecksumKey: cfg.PayOS.ChecksumKey,
			BaseURL:     cfg.PayOS.BaseURL,
			Timeout:     cfg.PayOS.Timeout,
		})
		log.Println("✅ payOS initialisé")
		return payos.NewGateway(client, cfg.PayOS.ReturnURL, cfg.PayOS.CancelURL, cfg.PayOS.LinkTTL), nil
	}
	return nil, errors.New("PAYMENT_PROVIDER inconnu : " + cfg.PaymentProvider)
}
