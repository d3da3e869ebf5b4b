package pkg

func Fatal(msg string) { // want Fatal:"noReturn"
	panic(msg)
}

func Fatalf(format string, args ...any) { // want Fatalf:"noReturn"
	Fatal(format)
}

func Spin() { // want Spin:"noReturn"
	for {
	}
}

func Maybe(b bool) {
	if b {
		panic("b")
	}
}
