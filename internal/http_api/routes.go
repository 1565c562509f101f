package http_api

// routes sets up the routes for the HTTP server.
func (s *HTTPServer) routes() {
	s.router.POST("/api/v1/payment/verify", s.verifyPayment)
	s.router.GET("/api/v1/channels/:channelId", s.getChannel)
	s.router.POST("/api/v1/bot/webhook", s.handleTelegramWebhook)
	s.router.GET("/api/v1/cron/check-expiry", s.checkExpiry)
	s.router.POST("/api/v1/cron/check-expiry", s.checkExpiry)
}
