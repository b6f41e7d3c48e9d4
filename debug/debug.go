package debug

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"strings"
	"sync"
)

const RVOSDEBUG = "RVOSDEBUG"

func init() {
	// XXX may want to set log.Ldate when not debugging
	log.SetFlags(log.Ltime | log.Lmicroseconds)
}

//
// Debug output is controled by RVOSDEBUG environment variable, which
// can be a list of labels (e.g., "PROCMGR;SYSCALL"). The kernel may
// override the environment with the labels from its boot parameters.
//

var mu sync.Mutex
var labels map[Tselector]bool

func parseLabels(s string) map[Tselector]bool {
	m := make(map[Tselector]bool)
	if s == "" {
		return m
	}
	for _, l := range strings.Split(s, ";") {
		m[Tselector(strings.TrimSpace(l))] = true
	}
	return m
}

func debugLabels() map[Tselector]bool {
	mu.Lock()
	defer mu.Unlock()
	if labels == nil {
		labels = parseLabels(os.Getenv(RVOSDEBUG))
	}
	return labels
}

// Replace the active label set; used by kernel boot and tests.
func SetDebug(s string) {
	mu.Lock()
	defer mu.Unlock()
	labels = parseLabels(s)
}

func WillBePrinted(label Tselector) bool {
	if label == ALWAYS {
		return true
	}
	_, ok := debugLabels()[label]
	return ok
}

func DPrintf(label Tselector, format string, v ...interface{}) {
	if WillBePrinted(label) {
		log.Printf("%v %v", label, fmt.Sprintf(format, v...))
	}
}

func DFatalf(format string, v ...interface{}) {
	// Get info for the caller.
	pc, file, line, ok := runtime.Caller(1)
	fnDetails := runtime.FuncForPC(pc)
	if ok && fnDetails != nil {
		log.Fatalf("FATAL %v %v:%v %v", fnDetails.Name(), file, line, fmt.Sprintf(format, v...))
	} else {
		log.Fatalf("FATAL (missing details) %v", fmt.Sprintf(format, v...))
	}
}
