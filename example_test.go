package timepin_test

import (
	"fmt"

	"github.com/pboyd/timepin"
)

func ExampleResolveByName() {
	exports := map[string]uintptr{
		"UnityEngine.Time::set_timeScale": 0x7f00,
		"Time::set_timeScale":             0x7f80,
	}
	r := timepin.ResolverFunc(func(name string) uintptr {
		return exports[name]
	})

	addr, name, err := timepin.ResolveByName(r, timepin.DefaultConfig().Candidates)
	fmt.Printf("%s %#x %v\n", name, addr, err)
	// Output: UnityEngine.Time::set_timeScale 0x7f00 <nil>
}
