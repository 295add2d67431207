package main

import (
	"github.com/gin-gonic/gin"
	"github.com/jessevdk/go-flags"

	"gotimescales/internal/api"
	"gotimescales/internal/common"
	"gotimescales/internal/logger"
	"gotimescales/internal/notify"
)

func main() {
	var opts struct {
		DatabaseFile string `short:"d" long:"database" env:"TSAC_DATABASE" description:"SQLite3 database file path" required:"true"`
		Host         string `short:"h" long:"host" env:"TSAC_HOST" description:"Host to bind on" default:"127.0.0.1"`
		Port         string `short:"p" long:"port" env:"TSAC_PORT" description:"Port to bind on" default:"8080"`
		ZmqHost      string `short:"H" long:"zhost" env:"TSAC_ZMQ_HOST" description:"ZMQ server host" default:"127.0.0.1"`
		ZmqPort      string `short:"P" long:"zport" env:"TSAC_ZMQ_PORT" description:"ZMQ server port" default:"5555"`
		LogMode      string `short:"l" long:"log" env:"TSAC_LOG" description:"Log mode (prod or dev)" default:"prod"`
	}
	_, err := flags.Parse(&opts)
	if err != nil {
		return
	}

	log, err := logger.New(opts.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := common.OpenDB(opts.DatabaseFile)
	if err != nil {
		log.Fatal("could not open database", "path", opts.DatabaseFile, "error", err)
	}
	defer db.Close()

	var notifier common.Notifier = common.NopNotifier{}
	endpoint := "tcp://" + opts.ZmqHost + ":" + opts.ZmqPort
	if z, err := notify.NewZmq(endpoint); err != nil {
		log.Warn("could not connect to ZMQ server (notifications disabled)", "endpoint", endpoint, "error", err)
	} else {
		defer z.Close()
		notifier = z
	}

	if opts.LogMode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(&api.RequestHandler{Db: db, Notifier: notifier, Log: log})
	log.Info("listening", "host", opts.Host, "port", opts.Port)
	if err := router.Run(opts.Host + ":" + opts.Port); err != nil {
		log.Fatal("server stopped", "error", err)
	}
}
