package pkg

const debug = false

func use(...any) {}

func deadStore(a int32) int32 {
	x := a // want `this value of x is never used`
	x = 2
	return x
}

func zeroInit(a int32) int32 {
	x := int32(0)
	x = a
	return x
}

func constBranch(a int32) int32 {
	ok := true
	if ok {
		return 1
	}
	return a // want `unreachable code`
}

func featureSwitch(a int32) {
	if debug {
		use(a)
	}
}

func switchCase(a int32) int32 {
	x := a // want `this value of x is never used`
	x = 4
	switch x {
	case 1: // want `unreachable code`
		return 1
	case 4:
		return 2
	}
	return 3 // want `unreachable code`
}

func afterLoop(a int32) int32 {
	for {
		a++
	}
	use(a) // want `unreachable code`
	return a
}

func escapes(a int32) *int32 {
	x := a
	p := &x
	x = 3
	return p
}

func overwritten(a int32, b bool) int32 {
	y := a + 1 // want `this value of y is never used`
	if b {
		y = 2
	} else {
		y = 3
	}
	return y
}

func division(a, b int32) int32 {
	y := a / b
	y = 2
	return y
}

func closure() func(int32) int32 {
	return func(a int32) int32 {
		x := a // want `this value of x is never used`
		x = 1
		return x
	}
}

func folded(a int32) int32 {
	x := int32(6)
	y := x * 7
	if y != 42 {
		return a // want `unreachable code`
	}
	return y
}

func fatal(msg string) {
	panic(msg)
}

func afterFatal(a int32) int32 {
	if a == 0 {
		fatal("zero")
		return 0 // want `unreachable code`
	}
	return a
}

func nested(a int32) int32 {
	if a > 0 {
		done := true
		if done {
			return 1
		}
		use(a) // want `unreachable code`
		a++
	}
	return a
}
