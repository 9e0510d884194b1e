// Package driven holds the interfaces the core uses to reach storage and
// remote systems. Adapters under internal/adapters/driven satisfy them.
//
// Every wiring must supply a ConfigStore, one ContentProvider per URI
// scheme and a ContentCacheProvider. NoopRecoveryStore is an acceptable
// ContentCacheProvider when crash recovery is off.
//
// A ContentProvider can opt into more behaviour by also implementing
// DocumentPersister (without it models never become dirty),
// ReadonlyReporter, LanguageDetector, LineEndingDetector,
// ContentFingerprinter or ChangeNotifier. Services discover these with
// type assertions.
//
// This package imports domain and nothing from internal/adapters.
package driven
