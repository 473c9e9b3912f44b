package script

import (
	"context"
	"time"

	"github.com/risor-io/risor/object"
)

func clockModule(now func() time.Time) *object.Module {
	if now == nil {
		now = time.Now
	}
	return object.NewBuiltinsModule("clock", map[string]object.Object{
		"format": object.NewBuiltin("format", func(ctx context.Context, args ...object.Object) object.Object {
			if len(args) != 1 {
				return object.TypeErrorf("type error: clock.format() takes exactly 1 argument (%d given)", len(args))
			}
			layout, errObj := object.AsString(args[0])
			if errObj != nil {
				return errObj
			}
			return object.NewString(now().Format(layout))
		}),
		"hour": object.NewBuiltin("hour", func(ctx context.Context, args ...object.Object) object.Object {
			return object.NewInt(int64(now().Hour()))
		}),
		"week": object.NewBuiltin("week", func(ctx context.Context, args ...object.Object) object.Object {
			_, week := now().ISOWeek()
			return object.NewInt(int64(week))
		}),
		"unix": object.NewBuiltin("unix", func(ctx context.Context, args ...object.Object) object.Object {
			return object.NewInt(now().Unix())
		}),
	})
}
