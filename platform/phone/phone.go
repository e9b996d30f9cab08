// Package phone provides Brazilian phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const (
	defaultRegion = "BR"
	countryCode   = "55"
)

// Normalize canonicalizes a phone number to the modern 11-digit Brazilian
// mobile form: digits only, no country code, ninth digit present.
// Inputs arrive in every shape the channels produce (WhatsApp JIDs,
// display-formatted numbers, bare digits with or without DDI).
func Normalize(raw string) string {
	digits := onlyDigits(raw)
	if digits == "" {
		return ""
	}

	if strings.HasPrefix(digits, countryCode) && len(digits) >= 12 {
		digits = digits[2:]
	}

	// Legacy 8-digit subscriber number with 2-digit area code.
	if len(digits) == 10 {
		digits = digits[:2] + "9" + digits[2:]
	}

	return digits
}

// Variants returns the candidate digit forms for matching a phone against
// sources that inconsistently use old/new mobile numbering and DDI prefixes.
// The normalized form always comes first so first-match-wins lookups prefer it.
func Variants(raw string) []string {
	normalized := Normalize(raw)
	if normalized == "" {
		return nil
	}

	variants := []string{normalized, countryCode + normalized}

	if len(normalized) == 11 {
		withoutNine := normalized[:2] + normalized[3:]
		variants = append(variants, withoutNine, countryCode+withoutNine)
	}

	return variants
}

// FormatDisplay renders digits in the national display form used by the
// registry provider: (DD) DDDDD-DDDD for mobiles, (DD) DDDD-DDDD otherwise.
// Valid numbers go through libphonenumber; legacy shapes it rejects are
// formatted by hand.
func FormatDisplay(raw string) string {
	digits := onlyDigits(raw)
	if strings.HasPrefix(digits, countryCode) && len(digits) >= 12 {
		digits = digits[2:]
	}

	if len(digits) == 11 {
		if number, err := phonenumbers.Parse("+"+countryCode+digits, defaultRegion); err == nil && phonenumbers.IsValidNumber(number) {
			return phonenumbers.Format(number, phonenumbers.NATIONAL)
		}
		return "(" + digits[:2] + ") " + digits[2:7] + "-" + digits[7:]
	}

	if len(digits) == 10 {
		return "(" + digits[:2] + ") " + digits[2:6] + "-" + digits[6:]
	}

	return digits
}

// DisplayVariants returns the ordered display forms to try against the
// provider's exact-match lookup. The ninth digit is added only for
// mobile-shaped subscribers and removed only when present, mirroring the
// old/new numbering split.
func DisplayVariants(raw string) []string {
	digits := onlyDigits(raw)
	if strings.HasPrefix(digits, countryCode) && len(digits) >= 12 {
		digits = digits[2:]
	}
	if len(digits) != 10 && len(digits) != 11 {
		if formatted := FormatDisplay(raw); formatted != "" {
			return []string{formatted}
		}
		return nil
	}

	forms := []string{FormatDisplay(digits)}

	if len(digits) == 10 && isMobileShaped(digits[2:]) {
		forms = append(forms, FormatDisplay(digits[:2]+"9"+digits[2:]))
	}

	if len(digits) == 11 && digits[2] == '9' {
		forms = append(forms, FormatDisplay(digits[:2]+digits[3:]))
	}

	return forms
}

// AreaCode extracts the two-digit DDD from any phone representation.
func AreaCode(raw string) string {
	normalized := Normalize(raw)
	if len(normalized) < 2 {
		return ""
	}
	return normalized[:2]
}

// RegionByAreaCode maps a phone to its canonical region name. Unknown area
// codes fall back to a raw "DDD NN" marker so callers can tell derived
// regions from canonical ones.
func RegionByAreaCode(raw string) string {
	ddd := AreaCode(raw)
	if ddd == "" {
		return ""
	}
	if region, ok := regionsByDDD[ddd]; ok {
		return region
	}
	return "DDD " + ddd
}

// isMobileShaped reports whether a subscriber number (without DDD) looks
// like a mobile: Brazilian mobiles start with 6, 7, 8 or 9.
func isMobileShaped(subscriber string) bool {
	if subscriber == "" {
		return false
	}
	switch subscriber[0] {
	case '6', '7', '8', '9':
		return true
	}
	return false
}

func onlyDigits(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var regionsByDDD = map[string]string{
	// Nordeste
	"71": "SALVADOR",
	"73": "ILHÉUS",
	"74": "JUAZEIRO",
	"75": "FEIRA DE SANTANA",
	"77": "BARREIRAS",
	"79": "ARACAJU",
	"81": "RECIFE",
	"82": "MACEIÓ",
	"83": "JOÃO PESSOA",
	"84": "NATAL",
	"85": "FORTALEZA",
	"86": "TERESINA",
	"87": "PETROLINA",
	"88": "JUAZEIRO DO NORTE",
	"89": "PICOS",
	"98": "SÃO LUÍS",
	"99": "IMPERATRIZ",

	// Sudeste
	"11": "SÃO PAULO",
	"12": "SÃO JOSÉ DOS CAMPOS",
	"13": "SANTOS",
	"14": "BAURU",
	"15": "SOROCABA",
	"16": "RIBEIRÃO PRETO",
	"17": "SÃO JOSÉ DO RIO PRETO",
	"18": "PRESIDENTE PRUDENTE",
	"19": "CAMPINAS",
	"21": "RIO DE JANEIRO",
	"22": "CAMPOS DOS GOYTACAZES",
	"24": "VOLTA REDONDA",
	"27": "VITÓRIA",
	"28": "CACHOEIRO DE ITAPEMIRIM",
	"31": "BELO HORIZONTE",
	"32": "JUIZ DE FORA",
	"33": "GOVERNADOR VALADARES",
	"34": "UBERLÂNDIA",
	"35": "POÇOS DE CALDAS",
	"37": "DIVINÓPOLIS",
	"38": "MONTES CLAROS",

	// Centro-Oeste
	"61": "BRASÍLIA",
	"62": "GOIÂNIA",
	"63": "PALMAS",
	"64": "RIO VERDE",
	"65": "CUIABÁ",
	"66": "RONDONÓPOLIS",
	"67": "CAMPO GRANDE",

	// Sul
	"41": "CURITIBA",
	"42": "PONTA GROSSA",
	"43": "LONDRINA",
	"44": "MARINGÁ",
	"45": "FOZ DO IGUAÇU",
	"46": "FRANCISCO BELTRÃO",
	"47": "JOINVILLE",
	"48": "FLORIANÓPOLIS",
	"49": "CHAPECÓ",
	"51": "PORTO ALEGRE",
	"53": "PELOTAS",
	"54": "CAXIAS DO SUL",
	"55": "SANTA MARIA",

	// Norte
	"68": "RIO BRANCO",
	"69": "PORTO VELHO",
	"91": "BELÉM",
	"92": "MANAUS",
	"93": "SANTARÉM",
	"94": "MARABÁ",
	"95": "BOA VISTA",
	"96": "MACAPÁ",
	"97": "COARI",
}
