package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Cheertaboi/mess-coupon-service/internal/api/handlers"
	"github.com/Cheertaboi/mess-coupon-service/internal/api/middleware"
)

// Services bundles what the HTTP layer calls into.
type Services struct {
	Auth    handlers.AuthService
	Menu    handlers.MenuService
	Coupons handlers.CouponService
	Notices handlers.NoticeService
	Tokens  middleware.TokenParser
}

// NewRouter builds the HTTP router for the mess service
func NewRouter(s Services, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	users := handlers.NewUserHandler(s.Auth, logger)
	menu := handlers.NewMenuHandler(s.Menu, logger)
	coupons := handlers.NewCouponHandler(s.Coupons, logger)
	notices := handlers.NewNoticeHandler(s.Notices, logger)

	// Public endpoints
	r.Route("/users", func(r chi.Router) {
		r.Post("/send-otp", users.SendOTP)
		r.Post("/verify-email", users.VerifyEmail)
		r.Post("/signUp", users.SignUp)
		r.Post("/signIn", users.SignIn)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(s.Tokens))
			r.Post("/updateFCMToken", users.UpdateFCMToken)
			r.Put("/updateUser/{id}", users.UpdateUser)
		})
	})

	// Authenticated endpoints
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(s.Tokens))

		r.Get("/days/getMenu", menu.GetMenu)
		r.Get("/meals/getMeals", menu.GetMeals)
		r.Get("/coupons", coupons.MyCoupons)
		r.Get("/coupons/qr", coupons.QRImage)
		r.Get("/coupons/qr/code", coupons.QRCode)
		r.Post("/payments/initiate", coupons.InitiatePayment)
		r.Post("/payments", coupons.SettlePayment)
		r.Get("/notices", notices.List)

		// Admin endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Post("/days/setMenu", menu.SetMenu)
			r.Post("/meals/setMeals", menu.SetMeals)
			r.Post("/coupons/scan", coupons.Scan)
			r.Get("/coupons/totalMeal", coupons.TotalMeal)
			r.Post("/notices", notices.Create)
			r.Put("/notices/{id}", notices.Update)
			r.Delete("/notices/{id}", notices.Delete)
		})
	})

	// health
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
