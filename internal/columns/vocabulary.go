package columns

import "rfqingest/internal"

// builtinKeywords holds the English and French header vocabulary. Entries
// are compared after util.NormalizeKey, so accents and punctuation do not
// matter here.
var builtinKeywords = map[internal.ColumnType][]string{
	internal.ColLineNumber: {
		"line", "line no", "line number", "ln", "no", "num", "item no", "item number", "pos", "position",
		"ligne", "numero", "n ligne", "sr no", "sl no", "s no", "seq",
	},
	internal.ColQuantity: {
		"qty", "quantity", "quantities", "qte", "quantite", "quantites", "qty req", "qty requested",
		"requested qty", "order qty", "nombre", "nb",
	},
	internal.ColUnitOfMeasure: {
		"uom", "u m", "unit", "units", "unite", "um", "unit of measure", "unite de mesure", "measure",
	},
	internal.ColItemCode: {
		"item code", "code", "code article", "article code", "product code", "material code", "stock code",
		"sku", "our code", "code interne", "internal code", "code produit",
	},
	internal.ColPartNumber: {
		"part number", "part no", "p n", "pn", "part", "reference", "ref", "ref fournisseur", "supplier ref",
		"supplier code", "mfr part", "manufacturer part", "oem", "oem no", "reference fabricant",
	},
	internal.ColBrand: {
		"brand", "make", "manufacturer", "mfr", "marque", "fabricant", "constructeur",
	},
	internal.ColModel: {
		"model", "model no", "type", "modele", "version",
	},
	internal.ColDescription: {
		"description", "desc", "item description", "item name", "designation", "libelle", "article",
		"product", "produit", "material", "materiel", "material description", "product description",
		"description article", "goods", "services", "name",
	},
	internal.ColSpecification: {
		"specification", "specifications", "spec", "specs", "caracteristiques", "technical data",
		"details", "characteristics",
	},
	internal.ColRemark: {
		"remark", "remarks", "note", "notes", "comment", "comments", "observation", "observations", "remarque",
	},
	internal.ColSerial: {
		"serial", "serial no", "serial number", "s n", "numero de serie", "n serie",
	},
	internal.ColAssetTag: {
		"asset", "asset tag", "asset no", "equipment", "equipment no", "tag", "equipement",
	},
	internal.ColDrawingRef: {
		"drawing", "drawing no", "drawing ref", "dwg", "dwg no", "plan", "plan no",
	},
	internal.ColUnitPrice: {
		"unit price", "price", "rate", "u p", "prix unitaire", "pu", "prix", "unit cost",
	},
	internal.ColTotalPrice: {
		"total", "total price", "amount", "line total", "montant", "prix total", "total ht", "extended price",
	},
	internal.ColCurrency: {
		"currency", "cur", "devise", "ccy",
	},
	internal.ColDeliveryDate: {
		"delivery date", "required date", "date required", "need by", "due date", "date de livraison",
		"delai", "lead time", "date",
	},
	internal.ColDeliveryLocation: {
		"delivery location", "ship to", "deliver to", "location", "site", "lieu de livraison", "destination",
	},
}

// builtinWeights ranks structural columns above optional metadata.
var builtinWeights = map[internal.ColumnType]int{
	internal.ColQuantity:      5,
	internal.ColDescription:   5,
	internal.ColLineNumber:    4,
	internal.ColUnitOfMeasure: 3,
	internal.ColItemCode:      3,
	internal.ColPartNumber:    3,
	internal.ColUnitPrice:     2,
	internal.ColTotalPrice:    2,
}

const metadataWeight = 1
