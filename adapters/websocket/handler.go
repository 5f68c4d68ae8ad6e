package websocket

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/hal-voice/utils/log"
)

// Handler upgrades "/ws" requests. It expects the JWT middleware to have stored
// the device id on the echo context.
func (s *Server) Handler(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	deviceID, _ := c.Get("device_id").(string)

	client := NewClient(conn, deviceID, s.handleMessage)
	s.hub.Register(client)
	defer s.hub.Unregister(client)

	client.Run()
	log.WithCtx(client.Context()).Info("Client connected", zap.Int("clients", s.hub.ClientCount()))
	s.greet(client)

	// Wait for the client context to be done (connection closed)
	<-client.Context().Done()

	return nil
}
