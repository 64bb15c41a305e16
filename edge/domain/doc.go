// Package domain define os contratos do shell de despacho na borda:
// a resposta, a unidade de computação e os dois recursos de longa duração
// (key-value e cache) que ela recebe.
//
// Não depende de implementações concretas (redis, lru, goja). A única
// dependência de net/http é o próprio *http.Request, que é o tipo natural
// da requisição de entrada em Go.
package domain
