package buildir

import "go/types"

// exits lists functions that never return but whose bodies can't show
// it, because they are implemented in assembly or by the runtime.
// Functions calling them, such as os.Exit and log.Fatal, are found by
// analyzing their bodies.
var exits = map[string]map[string]bool{
	"runtime": {
		"Goexit": true,
		"exit":   true,
		"fatal":  true,
		"throw":  true,
	},
	"syscall": {
		"Exit": true,
	},
}

func knownExit(fn *types.Func) bool {
	if fn.Pkg() == nil || fn.Signature().Recv() != nil {
		return false
	}
	return exits[fn.Pkg().Path()][fn.Name()]
}
