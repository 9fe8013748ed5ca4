package transpiler

import "regexp"

// Date formatting: new SimpleDateFormat(pattern) becomes
// createDateFormatter(pattern), backed by the executor shim of the same
// name; a directly chained .format(x) becomes a call of the returned
// formatter, createDateFormatter(pattern)(x).
var dateFormatRE = regexp.MustCompile(`new\s+SimpleDateFormat\(\s*("(?:[^"\\]|\\.)*")\s*\)(\.format\()?`)

// Modern Java date/time types: basic wall-clock replacements.
var localDateNowRE = regexp.MustCompile(`\b(?:LocalDate|LocalDateTime|ZonedDateTime|Instant)\.now\(\)`)
var localDateTypeRE = regexp.MustCompile(`\b(?:LocalDate|LocalDateTime|ZonedDateTime|Instant)\b`)

// Arbitrary-precision decimal.
var bigDecimalCtorRE = regexp.MustCompile(`new\s+BigDecimal\(\s*([^)]*)\s*\)`)

// JSON slurper.
var jsonSlurperRE = regexp.MustCompile(`new\s+JsonSlurper\(\s*\)\.parseText\(\s*([^)]*)\s*\)`)

// Platform API namespaces proxied to the shim.
var platformAPIRE = regexp.MustCompile(`\b(JTUtil|JTLookupUtil|JTV3Utils|JTJSONObject)\.(\w+)\(([^)]*)\)`)

// class declarations.
var classDeclRE = regexp.MustCompile(`\bclass\s+(\w+)\b`)

// String.format("%.Nf", x) -> x.toFixed(N)
var stringFormatFixedRE = regexp.MustCompile(`String\.format\(\s*"%\.(\d+)f"\s*,\s*([^)]+)\)`)

func tier3Platform(src string, acc *[]Warning) string {
	src = dateFormatRE.ReplaceAllStringFunc(src, func(m string) string {
		sub := dateFormatRE.FindStringSubmatch(m)
		warnf(acc, SeverityWarning, m, "date formatting rewritten to createDateFormatter(%s); verify pattern token compatibility", sub[1])
		if sub[2] != "" {
			return "createDateFormatter(" + sub[1] + ")("
		}
		return "createDateFormatter(" + sub[1] + ")"
	})

	src = localDateNowRE.ReplaceAllStringFunc(src, func(m string) string {
		warnf(acc, SeverityWarning, m, "modern date/time type replaced with a basic wall-clock Date; timezone and precision semantics may differ")
		return "new Date()"
	})
	src = localDateTypeRE.ReplaceAllStringFunc(src, func(m string) string {
		warnf(acc, SeverityWarning, m, "modern date/time type %q has no direct equivalent; treated as Date", m)
		return "Date"
	})

	src = bigDecimalCtorRE.ReplaceAllStringFunc(src, func(m string) string {
		sub := bigDecimalCtorRE.FindStringSubmatch(m)
		warnf(acc, SeverityWarning, m, "arbitrary-precision decimal narrowed to a float; rounding behaviour may differ")
		return "parseFloat(" + sub[1] + ")"
	})

	src = jsonSlurperRE.ReplaceAllString(src, `JSON.parse($1)`)

	src = platformAPIRE.ReplaceAllStringFunc(src, func(m string) string {
		sub := platformAPIRE.FindStringSubmatch(m)
		qualified := sub[1] + "." + sub[2]
		warnf(acc, SeverityError, m, "platform API %s has no equivalent; proxied to a stub that logs and returns an empty value", qualified)
		return `platformStub("` + qualified + `")`
	})

	src = classDeclRE.ReplaceAllStringFunc(src, func(m string) string {
		sub := classDeclRE.FindStringSubmatch(m)
		warnf(acc, SeverityWarning, m, "class %s carried over verbatim; legacy class semantics (traits, metaclass hooks) are not reproduced", sub[1])
		return m
	})

	src = stringFormatFixedRE.ReplaceAllString(src, `($2).toFixed($1)`)

	return src
}
