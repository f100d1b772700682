package checker

import (
	"github.com/cottand/tsz/frontend/types"
)

// ambientGlobals are the values every program can refer to without declaring them
func ambientGlobals(db *types.Database) map[string]types.TypeID {
	fn := func(ret types.TypeID, params ...types.Param) types.TypeID {
		return db.FuncOf(types.Signature{Params: params, Return: ret})
	}
	param := func(name string, t types.TypeID) types.Param {
		return types.Param{Name: name, Type: t}
	}
	logMethod := func(name string) types.Property {
		return types.Property{
			Name:   name,
			Type:   fn(types.Void, types.Param{Name: "data", Type: db.ArrayOf(types.Any), Rest: true}),
			Method: true,
		}
	}

	return map[string]types.TypeID{
		"parseInt":   fn(types.Number, param("string", types.String), types.Param{Name: "radix", Type: types.Number, Optional: true}),
		"parseFloat": fn(types.Number, param("string", types.String)),
		"isNaN":      fn(types.Boolean, param("number", types.Number)),
		"isFinite":   fn(types.Boolean, param("number", types.Number)),
		"eval":       fn(types.Any, param("x", types.String)),
		"console": db.ObjectOf(
			logMethod("log"),
			logMethod("error"),
			logMethod("warn"),
			logMethod("info"),
			logMethod("debug"),
		),
		"NaN":       types.Number,
		"Infinity":  types.Number,
		"undefined": types.Undefined,
	}
}
