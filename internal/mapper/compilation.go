package mapper

import (
	v1 "github.com/aevon-lab/jfrtel/internal/api/v1"
)

// jdk.Compilation {
//        startTime = 16:04:14.403
//        duration = 1.21 ms
//        method = org.apache.kafka.clients.Metadata.update(Cluster, Set, long)
//        compileId = 30333
//        compileLevel = 4
//        succeded = true
//        isOsr = false
//        codeSize = 36.1 kB
//        inlinedBytes = 2.9 kB
//        eventThread = "C2 CompilerThread0" (javaThreadId = 5)
// }

const (
	CompilationEventName = "jdk.Compilation"
	CompilationEventType = "JfrCompilation"
)

// Compilation maps JIT compilations.
func Compilation() Mapper {
	return Mapper{
		EventName: CompilationEventName,
		EventType: CompilationEventType,
		Apply: func(rec *v1.Record) []v1.Event {
			attrs := v1.Attributes{}
			if method, ok := rec.Field("method"); ok {
				attrs["desc"] = DescribeMethod(method)
			}
			attrs["duration"] = rec.Duration.Milliseconds()
			attrs["succeeded"] = Succeeded(rec)
			attrs["thread.name"] = threadName(rec)
			return []v1.Event{newEvent(CompilationEventType, rec, attrs)}
		},
	}
}
