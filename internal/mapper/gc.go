package mapper

import (
	"time"

	v1 "github.com/aevon-lab/jfrtel/internal/api/v1"
)

const (
	GarbageCollectionEventName = "jdk.GarbageCollection"
	GarbageCollectionEventType = "JfrGarbageCollection"

	CPULoadEventName = "jdk.CPULoad"
	CPULoadEventType = "JfrCPULoad"

	ObjectAllocationSampleEventName = "jdk.ObjectAllocationSample"
	ObjectAllocationSampleEventType = "JfrObjectAllocationSample"
)

// GarbageCollection maps completed collections. Pause fields arrive as
// nanosecond durations and are reported in milliseconds.
func GarbageCollection() Mapper {
	return Mapper{
		EventName: GarbageCollectionEventName,
		EventType: GarbageCollectionEventType,
		Apply: func(rec *v1.Record) []v1.Event {
			attrs := v1.Attributes{
				"name":         stringField(rec, "name"),
				"cause":        stringField(rec, "cause"),
				"gcId":         int64Field(rec, "gcId"),
				"sumOfPauses":  millisField(rec, "sumOfPauses"),
				"longestPause": millisField(rec, "longestPause"),
				"duration":     rec.Duration.Milliseconds(),
			}
			return []v1.Event{newEvent(GarbageCollectionEventType, rec, attrs)}
		},
	}
}

// CPULoad maps the periodic process and machine CPU load sample.
func CPULoad() Mapper {
	return Mapper{
		EventName:       CPULoadEventName,
		EventType:       CPULoadEventType,
		PollingInterval: time.Second,
		Apply: func(rec *v1.Record) []v1.Event {
			attrs := v1.Attributes{
				"jvmUser":      float64Field(rec, "jvmUser"),
				"jvmSystem":    float64Field(rec, "jvmSystem"),
				"machineTotal": float64Field(rec, "machineTotal"),
			}
			return []v1.Event{newEvent(CPULoadEventType, rec, attrs)}
		},
	}
}

// ObjectAllocationSample maps throttled allocation samples. A sample without
// an allocated class carries nothing worth reporting and maps to no event.
func ObjectAllocationSample() Mapper {
	return Mapper{
		EventName: ObjectAllocationSampleEventName,
		EventType: ObjectAllocationSampleEventType,
		Since:     16,
		Apply: func(rec *v1.Record) []v1.Event {
			class := stringField(rec, "objectClass")
			if class == nil {
				return nil
			}
			attrs := v1.Attributes{
				"class":       class,
				"weight":      int64Field(rec, "weight"),
				"thread.name": threadName(rec),
			}
			return []v1.Event{newEvent(ObjectAllocationSampleEventType, rec, attrs)}
		},
	}
}
