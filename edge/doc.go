// Package edge é a casca HTTP do serviço de borda.
//
// Camadas:
//
//   - domain: contratos (Response, Unit, KVStore, Cache) sem implementação
//   - application: Dispatcher (chama a unidade com contenção de falhas) e
//     regras de admissão
//   - infra: Redis, LRU local, x/time/rate, Prometheus
//   - edge (este pacote): Listener/FetchEvent, middlewares de admissão e
//     escrita da resposta no http.ResponseWriter
//
// Fluxo de uma requisição:
//
//  1. (opcional) admissão: rate limit por cliente e limite de concorrência
//  2. Listener.ServeHTTP cria o FetchEvent e chama OnRequest
//  3. OnRequest registra uma resposta assíncrona produzida pelo Dispatcher
//  4. o evento espera essa resposta e a escreve exatamente uma vez
//
// Qualquer falha da unidade vira 500 com corpo vazio.
package edge
