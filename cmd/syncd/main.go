package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tokenledger/walletsync/internal/config"
	"github.com/tokenledger/walletsync/internal/services/db"
	"github.com/tokenledger/walletsync/internal/services/ethrequest"
	"github.com/tokenledger/walletsync/internal/services/queue"
	"github.com/tokenledger/walletsync/internal/status"
	"github.com/tokenledger/walletsync/pkg/retry"
	"github.com/tokenledger/walletsync/pkg/syncer"
)

func main() {
	log.Default().Println("launching wallet sync...")

	env := flag.String("env", "", "path to .env file")

	port := flag.Int("port", 3000, "port for the status api")

	flag.Parse()

	ctx := context.Background()

	conf, err := config.New(ctx, *env)
	if err != nil {
		log.Fatal(err)
	}

	if conf.SentryURL != "" {
		err = sentry.Init(sentry.ClientOptions{
			Dsn: conf.SentryURL,
		})
		if err != nil {
			log.Fatalf("sentry.Init: %s", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	log.Default().Println("connecting to rpc...")

	evm, err := ethrequest.NewEthService(ctx, conf.RPCURL)
	if err != nil {
		log.Fatal(err)
	}
	defer evm.Close()

	chid, err := evm.ChainID()
	if err != nil {
		log.Fatal(err)
	}

	log.Default().Println("syncing network ", conf.Network, " chain id ", chid.String())

	log.Default().Println("connecting to db...")

	var d *db.DB
	err = retry.Exponential(func() error {
		var err error
		d, err = db.NewDB(conf.DBUser, conf.DBPassword, conf.DBName, conf.DBHost, conf.DBReadHost)
		return err
	}, retry.ExponentialConfig{
		InitialInterval: time.Second,
		MaxElapsedTime:  time.Minute,
		OnRetry: func(err error, next time.Duration) {
			log.Default().Println("db not ready, retrying in ", next, ": ", err)
		},
	})
	if err != nil {
		log.Fatal(err)
	}
	defer d.Close()

	log.Default().Println("connecting to nats...")

	pub, err := queue.NewPublisher(conf.NatsURL, conf.PublishSubject)
	if err != nil {
		log.Fatal(err)
	}
	defer pub.Close()

	pipeline := syncer.New(conf.Network, conf.RequiredConfirmations, conf.MaxBlocksRead, syncer.Deps{
		Chain:     evm,
		Cursors:   d.CursorDB,
		Transfers: d.TransferDB,
		Balances:  d.BalanceDB,
		Tokens:    d.TokenDB,
		Wallets:   d.WalletDB,
		Publisher: pub,
	})

	sweeper := syncer.NewSweeper(conf.Network, conf.RequiredConfirmations, evm, d.BalanceDB, d.TokenDB)

	log.Default().Println("starting sync service...")

	go pipeline.Background(conf.SyncInterval)

	go sweeper.Background(conf.SweepInterval)

	log.Default().Println("starting status api...")

	api := status.NewServer(status.NewService(conf.Network, d.CursorDB))

	log.Default().Println("listening on port: ", *port)

	err = api.Start(*port)
	if err != nil {
		log.Fatal(err)
	}
}
