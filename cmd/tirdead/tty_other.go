//go:build !linux && !darwin && !dragonfly && !freebsd && !netbsd && !openbsd

package main

func isTerminal(fd uintptr) bool { return false }
