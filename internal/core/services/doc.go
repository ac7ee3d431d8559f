// Package services implements the driving ports on top of the driven ones.
//
// PipelineService runs one contract through embed, store, retrieve,
// analyse, report, save and notify, and owns the document status. Gateway
// bounds every embedding and generation call with a timeout and maps
// failures to domain errors. RetrievalService tries its Ranker tiers
// (semantic, keyword, substring) in order until one answers.
package services
