// internal/web/dump.go
package web

import (
	"fmt"
	"math"
	"strings"

	"github.com/tamzrod/modbus-gateway/internal/register"
	"github.com/tamzrod/modbus-gateway/internal/store"
)

// Dump renders every source block as plain text: a header, the id of
// the last committed read, then one description=value line per field.
func Dump(vs *store.ValueStore) string {
	var sb strings.Builder
	for _, b := range vs.Schema().Blocks() {
		snap, ok := vs.Copy(b.Name)
		if !ok {
			continue
		}

		fmt.Fprintf(&sb, "[%s]\n", b.Name)
		fmt.Fprintf(&sb, "TransactionID=%d\n", snap.LastID)
		if !snap.HasData() {
			sb.WriteString("no data\n\n")
			continue
		}

		for _, d := range b.Descriptors {
			off := b.Offset(d)
			v := register.Decode(snap.Words[off:off+int(d.WordCount)], d)

			label := d.Description
			if label == "" {
				label = d.Name
			}
			sb.WriteString(label)
			sb.WriteByte('=')
			sb.WriteString(FormatValue(v, d))
			if d.Unit != "" {
				sb.WriteByte(' ')
				sb.WriteString(d.Unit)
			}
			sb.WriteByte('\n')
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// FormatValue prints an already scaled value with as many decimals as
// the scale implies (scale 10 -> 1, 1000 -> 3). Unscaled integers print
// without decimals, floats with six.
func FormatValue(v float64, d register.Descriptor) string {
	if d.Type == register.Float32 {
		return fmt.Sprintf("%f", v)
	}
	if d.Scale <= 1 {
		return fmt.Sprintf("%d", int64(v))
	}
	prec := int(math.Round(math.Log10(float64(d.Scale))))
	return fmt.Sprintf("%.*f", prec, v)
}
