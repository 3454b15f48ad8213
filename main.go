package main

import (
	"flag"
	"fmt"
	"log"
	"os"
)

// Set at build time with -ldflags "-X main.GitCommit=... -X main.GitTag=... -X main.BuildTime=...".
var (
	GitCommit string
	GitTag    string
	BuildTime string
)

func main() {
	configFile := flag.String("config", "./config.yml", "path of the yaml configuration file")
	envFile := flag.String("env", "./config.env", "path of the optional env file")
	version := flag.Bool("version", false, "print build details and exit")
	flag.Parse()

	if *version {
		fmt.Fprintf(os.Stdout, "ebooks-api tag=%s commit=%s built=%s\n", GitTag, GitCommit, BuildTime)
		return
	}

	app, err := NewApp(*configFile, *envFile)
	if err != nil {
		log.Fatal("ebooks api failed to initialize: ", err)
	}
	err = app.Run()
	if err != nil {
		log.Fatal("ebooks api exited. check logs for more details. ", err)
	}
}
