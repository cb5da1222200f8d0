package migrate

// VersionsIn exposes versionsIn to external tests.
var VersionsIn = versionsIn
