package queue

import (
	"encoding/json"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/tokenledger/walletsync/pkg/syncer"
)

// Publisher sends wallet notifications over NATS. Delivery is fire and
// forget: the ledger is the source of truth, the notification is telemetry.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

func NewPublisher(url, subject string) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectHandler(func(nc *nats.Conn) {
			log.Default().Println("disconnected from nats")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Default().Println("reconnected to nats: ", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Default().Println("nats connection closed")
		}),
	)
	if err != nil {
		return nil, err
	}

	return &Publisher{
		nc:      nc,
		subject: subject,
	}, nil
}

func (p *Publisher) Publish(msg *syncer.WalletNotification) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return p.nc.Publish(p.subject, data)
}

func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
