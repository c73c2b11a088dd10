package render

import (
	"fmt"
	"strings"

	"github.com/destenson/dsvision/internal/core"
)

// FormatLabel builds the "{class_name}[ {confidence:.2f}][ #id]" overlay
// label, with each field gated by its config flag.
func FormatLabel(cfg Config, obj core.ObjectMeta) string {
	var b strings.Builder
	b.WriteString(obj.Label)
	if b.Len() == 0 {
		b.WriteString(fmt.Sprintf("class_%d", obj.ClassID))
	}

	if cfg.EnableConfidence {
		fmt.Fprintf(&b, " %.2f", obj.DetectionConfidence)
	}
	if cfg.EnableTrackingID && obj.IsTracked() {
		fmt.Fprintf(&b, " #%d", obj.ObjectID)
	}
	return b.String()
}
