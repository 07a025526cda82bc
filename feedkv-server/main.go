package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/ngaut/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/feedkv/feedkv/feed"
	"github.com/feedkv/feedkv/feed/api"
	"github.com/feedkv/feedkv/kv/config"
	"github.com/feedkv/feedkv/kv/storage/standalone_storage"
)

var (
	configPath = flag.String("config", "", "config file path")
	storeAddr  = flag.String("addr", "", "listen address")
	dbPath     = flag.String("db-path", "", "directory to store the data in")
)

func main() {
	flag.Parse()
	conf := loadConfig()
	log.SetLevelByString(conf.LogLevel)
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	log.Infof("conf %v", conf)

	store := standalone_storage.NewStandAloneStorage(conf)
	if err := store.Start(); err != nil {
		log.Fatal(err)
	}
	hub := feed.NewHub(conf.EventBuffer)
	retry := feed.PolicyFromConfig(conf.Retry)

	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.PathPrefix("/feeds/").Handler(api.NewHandler(store, hub, retry))

	srv := &http.Server{Addr: conf.StoreAddr, Handler: router}
	handleSignal(srv)

	log.Infof("listening on %v", conf.StoreAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
	if err := store.Stop(); err != nil {
		log.Fatal(err)
	}
	log.Info("Server stopped.")
}

func loadConfig() *config.Config {
	conf, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *storeAddr != "" {
		conf.StoreAddr = *storeAddr
	}
	if *dbPath != "" {
		conf.DBPath = *dbPath
	}
	return conf
}

func handleSignal(srv *http.Server) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)
	go func() {
		sig := <-sigCh
		log.Infof("Got signal [%s] to exit.", sig)
		srv.Close()
	}()
}
