// Package security builds client TLS settings for the infrastructure the
// service dials: Redis for run locks and Kafka for lifecycle events.
//
//	redis:
//	  tls:
//	    enabled: true
//	    ca_file: /etc/stenopro/ca.pem
package security
