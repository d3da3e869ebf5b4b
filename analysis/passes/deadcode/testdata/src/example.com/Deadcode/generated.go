// Code generated by hand for testing. DO NOT EDIT.

package pkg

func generated(a int32) int32 {
	x := a
	x = 1
	return x
}
