package pkg

import (
	"os"
	"runtime"

	a "example.com/NoReturnA"
)

func Exit(code int32) { // want Exit:"noReturn"
	a.Fatal("exit")
}

func Check(err error) {
	if err != nil {
		a.Fatalf("%v", err)
	}
}

func Loop() { // want Loop:"noReturn"
	a.Spin()
}

var hook = func() {
	a.Fatal("hook")
}

func Quit() { // want Quit:"noReturn"
	os.Exit(1)
}

func Stop() { // want Stop:"noReturn"
	runtime.Goexit()
}
