// Package manifest turns a deployment request into rendered Kubernetes
// manifests and Dockerfiles.
//
// A request describes the workloads of one project: an optional server
// (with fixed replicas or an autoscaler), database migrations, cron jobs
// and consumers, plus plain and encrypted environment variables. Most
// fields may be given once or per environment:
//
//	server:
//	  replicas:
//	    prod: 3
//	    _default: 1
//	  memory_limits: 512Mi
//	  requests:
//	    memory: 256Mi
//	    cpu: 100m
//	cronjobs:
//	  - name: cleanup
//	    enabled: {prod: true}
//	    schedule: "0 * * * *"
//	    concurrency: Forbid
//	    command: make cleanup
//
// # Assembly
//
// The Assembler resolves every value for the target environment, decrypts
// secrets, and renders one document per workload with the most specific
// template the team has (see package templates). Documents come back in a
// fixed order: migrations, server, server autoscaler, cron jobs, consumers.
//
// # Templates
//
// Templates use text/template with the sprig function set and a jsonify
// helper. Referencing a binding that was not provided is an error.
package manifest
