package domain

// KeyPrefix namespaces every key the service writes.
const KeyPrefix = "recall:"
