package analysis

// ModuleCatalog lists known domain module names recognized as whole words when
// a prompt names no numbered modules. The list mixes the spanish business
// vocabulary the system grew up with and common english software groupings.
// Order matters only for pattern precompilation; detection order follows the
// prompt itself.
var ModuleCatalog = []string{
	"INTRANET",
	"COMERCIAL",
	"OPERACIONES",
	"ADMINISTRACIÓN",
	"ADMINISTRACION",
	"VENTAS",
	"INVENTARIO",
	"REPORTES",
	"FACTURACIÓN",
	"FACTURACION",
	"CONTABILIDAD",
	"LOGÍSTICA",
	"LOGISTICA",
	"ALMACÉN",
	"ALMACEN",
	"RECURSOS HUMANOS",
	"backend",
	"frontend",
	"database",
	"authentication",
	"dashboard",
	"reporting",
	"billing",
	"inventory",
}
