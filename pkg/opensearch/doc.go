// Package opensearch manages the OpenSearch client behind the alert audit
// trail. New builds a client from environment-driven Config and verifies
// connectivity before returning, so a misconfigured trail fails at startup
// rather than on the first dropped alert.
//
// Healthcheck returns a probe closure matching the shape the reporting API
// mounts on /healthz.
package opensearch
