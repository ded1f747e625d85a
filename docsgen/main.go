package main

import (
	"fmt"
	"os"

	"github.com/filecoin-project/go-statemachine/fsm"

	"github.com/storm-wg/go-storm/exchange"
	exchangeimpl "github.com/storm-wg/go-storm/exchange/impl"
)

func sessionStatusCmp(a, b fsm.StateKey) bool {
	aStatus := a.(exchange.Status)
	bStatus := b.(exchange.Status)
	return aStatus < bStatus
}

func main() {
	err := os.MkdirAll("./docs", os.ModePerm)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	file, err := os.Create("./docs/requester.mmd")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	err = fsm.GenerateUML(file, fsm.MermaidUML, exchangeimpl.RequesterFSMParameterSpec, exchange.Statuses, exchange.RequesterEvents, []fsm.StateKey{exchange.StatusNew}, false, sessionStatusCmp)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	err = file.Close()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	file, err = os.Create("./docs/holder.mmd")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	err = fsm.GenerateUML(file, fsm.MermaidUML, exchangeimpl.HolderFSMParameterSpec, exchange.Statuses, exchange.HolderEvents, []fsm.StateKey{exchange.StatusNew}, false, sessionStatusCmp)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	err = file.Close()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
