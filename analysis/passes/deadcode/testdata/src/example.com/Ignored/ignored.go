package pkg

func skipMe(a int32) int32 {
	x := a
	x = 1
	_ = func(b int32) int32 {
		y := b
		y = 2
		return y
	}
	return x
}

func checked(a int32) int32 {
	x := a // want `this value of x is never used`
	x = 1
	return x
}
