package brands

// builtinCategories is used when no brand file is configured or it cannot
// be read.
var builtinCategories = map[string][]string{
	"bearings":     {"SKF", "FAG", "NSK", "NTN", "Timken", "INA", "Koyo"},
	"electrical":   {"Siemens", "ABB", "Schneider Electric", "Legrand", "Hager", "Phoenix Contact", "Weidmüller", "Eaton", "Omron", "Mitsubishi Electric", "Allen-Bradley", "Rockwell Automation"},
	"pneumatics":   {"Festo", "SMC", "Parker", "Bosch Rexroth", "Legris", "Norgren", "Camozzi"},
	"tools":        {"Makita", "DeWalt", "Hilti", "Bosch", "Würth", "Facom", "Stanley", "Milwaukee", "3M"},
	"engines":      {"Caterpillar", "Komatsu", "Volvo", "Cummins", "Perkins", "Deutz", "John Deere", "Mercedes-Benz", "Toyota"},
	"filtration":   {"Donaldson", "Fleetguard", "Mann-Filter", "Baldwin", "Hifi Filter"},
	"pumps":        {"Grundfos", "KSB", "Wilo", "Danfoss", "Flygt"},
	"instruments":  {"Honeywell", "Emerson", "Endress+Hauser", "Yokogawa", "Fluke", "WIKA"},
	"lubricants":   {"Shell", "Mobil", "Castrol"},
	"transmission": {"Gates", "Optibelt", "Tsubaki", "Renold"},
}

// synonyms map aliases, compared case-insensitively, to the canonical name.
var synonyms = map[string]string{
	"schneider":      "Schneider Electric",
	"telemecanique":  "Schneider Electric",
	"rexroth":        "Bosch Rexroth",
	"mercedes":       "Mercedes-Benz",
	"allen bradley":  "Allen-Bradley",
	"e+h":            "Endress+Hauser",
	"endress hauser": "Endress+Hauser",
	"mann filter":    "Mann-Filter",
	"weidmuller":     "Weidmüller",
	"wurth":          "Würth",
	"mitsubishi":     "Mitsubishi Electric",
	"rockwell":       "Rockwell Automation",
	"deere":          "John Deere",
	"hifi":           "Hifi Filter",
}
